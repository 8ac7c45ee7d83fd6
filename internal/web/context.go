package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/fairprice/internal/core"
	appmw "github.com/JonMunkholm/fairprice/internal/web/middleware"
)

// withRequestMetadata copies the client address and User-Agent into ctx
// for exploration logs.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, appmw.ClientIP(r), r.UserAgent())
}
