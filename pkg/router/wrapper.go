package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	router *Router, method string, handler HandlerFunc[Request, Response],
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = xcontext.WithConfigs(ctx, router.cfg)
		ctx = xcontext.WithLogger(ctx, router.logger)
		ctx = xcontext.WithDB(ctx, router.db)
		ctx = xcontext.WithTokenEngine(ctx, router.tokenEngine)
		ctx = xcontext.WithHTTPRequest(ctx, r)
		ctx = xcontext.WithHTTPWriter(ctx, w)

		func() {
			if method != anyMethod && r.Method != method {
				ctx = xcontext.WithError(ctx,
					errorx.New(errorx.BadRequest, "Not supported method %s", r.Method))
				return
			}

			var err error
			for _, m := range router.befores {
				if ctx, err = m(ctx); err != nil {
					ctx = xcontext.WithError(ctx, err)
					return
				}
			}

			var req Request
			switch r.Method {
			case http.MethodGet:
				err = bindQuery(r, &req)
			case http.MethodPost:
				// An empty body is a valid zero-value request.
				if err = json.NewDecoder(r.Body).Decode(&req); errors.Is(err, io.EOF) {
					err = nil
				}
			default:
				ctx = xcontext.WithError(ctx,
					errorx.New(errorx.BadRequest, "Not supported method %s", r.Method))
				return
			}
			if err != nil {
				xcontext.Logger(ctx).Debugf("Cannot bind the request: %v", err)
				ctx = xcontext.WithError(ctx, errorx.New(errorx.BadRequest, "Invalid request"))
				return
			}

			resp, err := handler(ctx, &req)
			if err != nil {
				ctx = xcontext.WithError(ctx, err)
				return
			}

			ctx = xcontext.WithResponse(ctx, resp)
			for _, m := range router.afters {
				if ctx, err = m(ctx); err != nil {
					ctx = xcontext.WithError(ctx, err)
					return
				}
			}
		}()

		writeResponse(ctx)
		for _, closer := range router.closers {
			closer(ctx)
		}
	})
}
