package browse

import (
	"context"

	"comicweek/internal/infra/logx"
	"comicweek/internal/releases"
)

// Execute runs req against svc and packages the outcome for Resolve.
func Execute(ctx context.Context, svc releases.Service, req Request) Result {
	res := Result{Token: req.Token}
	ctx = releases.WithRetryCounters(ctx, &res.Retries)
	switch req.Kind {
	case RequestSync:
		res.Sync, res.Err = svc.TriggerSync(ctx, req.Start, req.End)
	default:
		var rs releases.ResultSet
		if req.Mode.Kind == ModeSearch {
			rs, res.Err = svc.FetchBySearch(ctx, req.Mode.Term)
		} else {
			rs, res.Err = svc.FetchByWeek(ctx, req.Mode.Week)
		}
		res.Items = rs.Items
	}
	rc := res.Retries
	switch {
	case res.Err != nil:
		logx.Warnw("request failed", "token", req.Token, "mode", req.Mode.String(),
			"retries", rc.Total, "retries_429", rc.Status429, "retries_5xx", rc.Status5xx, "retries_net", rc.Net,
			"error", res.Err.Error())
	case rc.Total > 0:
		logx.Debugw("request recovered after retries", "token", req.Token, "mode", req.Mode.String(), "retries", rc.Total)
	}
	return res
}

// Run drives s through req and any follow-up request until nothing is left
// to fetch. Non-interactive callers use it to get a settled state.
func Run(ctx context.Context, svc releases.Service, s ViewState, req *Request) ViewState {
	for req != nil {
		s, req = s.Resolve(Execute(ctx, svc, *req))
	}
	return s
}
