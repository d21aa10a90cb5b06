package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies the pipeline run and stage a context belongs to.
type TraceData struct {
	RunID string
	Stage string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}
