package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

type response struct {
	Code  int64  `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func writeResponse(ctx context.Context) {
	w := xcontext.HTTPWriter(ctx)
	w.Header().Set("Content-Type", "application/json")

	if err := xcontext.Error(ctx); err != nil {
		errx := errorx.Unknown
		if !errors.As(err, &errx) {
			errx = errorx.Unknown
		}

		w.WriteHeader(errorx.HTTPStatus(errx.Code))
		writeJson(ctx, w, response{Code: int64(errx.Code), Error: errx.Message})
		return
	}

	writeJson(ctx, w, response{Code: 0, Data: xcontext.Response(ctx)})
}

func writeJson(ctx context.Context, w http.ResponseWriter, resp response) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}
}
