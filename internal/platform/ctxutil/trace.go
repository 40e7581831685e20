package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one unit of work across logs. HTTP requests fill
// TraceID and RequestID; queue deliveries fill DeliveryID.
type TraceData struct {
	TraceID    string
	RequestID  string
	DeliveryID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.DeliveryID != "" {
		out = append(out, "delivery_id", td.DeliveryID)
	}
	return out
}
