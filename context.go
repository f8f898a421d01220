package serialport

import "context"

// The Context methods below submit an operation and wait for its callback or
// for ctx, whichever comes first. When ctx ends first the operation still
// runs to completion in the background; only the wait is abandoned.
//
// They block until the port's task queue has processed the operation, so
// they must not be called from a callback or listener of the same port.

type result[T any] struct {
	value T
	err   error
}

func await[T any](ctx context.Context, start func(done func(T, error)) error) (T, error) {
	var zero T

	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	default:
	}

	ch := make(chan result[T], 1)
	if err := start(func(v T, err error) {
		ch <- result[T]{value: v, err: err}
	}); err != nil {
		return zero, err
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func awaitErr(ctx context.Context, start func(cb Callback) error) error {
	_, err := await(ctx, func(done func(struct{}, error)) error {
		return start(func(err error) { done(struct{}{}, err) })
	})
	return err
}

// OpenContext opens the port and waits for the outcome
func (p *Port) OpenContext(ctx context.Context) error {
	return awaitErr(ctx, func(cb Callback) error {
		p.Open(cb)
		return nil
	})
}

// CloseContext closes the port and waits for the outcome
func (p *Port) CloseContext(ctx context.Context) error {
	return awaitErr(ctx, func(cb Callback) error {
		p.Close(cb)
		return nil
	})
}

// UpdateContext changes the baud rate and waits for the outcome
func (p *Port) UpdateContext(ctx context.Context, opts UpdateOptions) error {
	return awaitErr(ctx, func(cb Callback) error {
		return p.Update(opts, cb)
	})
}

// WriteContext writes data and waits until the binding accepted it
func (p *Port) WriteContext(ctx context.Context, data []byte) (int, error) {
	return await(ctx, func(done func(int, error)) error {
		return p.Write(data, WriteCallback(done))
	})
}

// WriteStringContext writes s in the configured encoding
func (p *Port) WriteStringContext(ctx context.Context, s string) (int, error) {
	return await(ctx, func(done func(int, error)) error {
		return p.Write(s, WriteCallback(done))
	})
}

// SetContext changes the control lines and waits for the outcome
func (p *Port) SetContext(ctx context.Context, opts SetOptions) error {
	return awaitErr(ctx, func(cb Callback) error {
		p.Set(opts, cb)
		return nil
	})
}

// GetContext reads the modem status lines
func (p *Port) GetContext(ctx context.Context) (ModemStatus, error) {
	return await(ctx, func(done func(ModemStatus, error)) error {
		p.Get(done)
		return nil
	})
}

// GetBaudRateContext asks the binding for the baud rate in effect
func (p *Port) GetBaudRateContext(ctx context.Context) (int, error) {
	return await(ctx, func(done func(int, error)) error {
		p.GetBaudRate(done)
		return nil
	})
}

// FlushContext discards buffered data and waits for the outcome
func (p *Port) FlushContext(ctx context.Context) error {
	return awaitErr(ctx, func(cb Callback) error {
		p.Flush(cb)
		return nil
	})
}

// DrainContext waits until submitted writes have been transmitted
func (p *Port) DrainContext(ctx context.Context) error {
	return awaitErr(ctx, func(cb Callback) error {
		p.Drain(cb)
		return nil
	})
}
