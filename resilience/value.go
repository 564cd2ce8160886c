package resilience

import "context"

// ExecuteValue runs a value-returning operation under the executor's
// default policy.
func ExecuteValue[T any](e *Executor, ctx context.Context, opKey string, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := e.Execute(ctx, opKey, func(ctx context.Context) error {
		v, opErr := op(ctx)
		if opErr != nil {
			return opErr
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
