package authenticator

import (
	"time"

	"github.com/ticketdraw/backend/internal/model"
)

type TokenEngine interface {
	Generate(expiration time.Duration, obj model.AccessToken) (string, error)
	Verify(token string) (model.AccessToken, error)
}
