package session

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// errListenerClosed stops the group when l is closed by someone other than
// Serve.
var errListenerClosed = errors.New("listener closed")

// Serve accepts connections on l and runs one Session per connection until
// ctx is cancelled or l is closed. Session errors are logged and do not stop
// the listener. Serve closes l and waits for every session before returning.
func Serve(ctx context.Context, l net.Listener, factory ServerFactory, logger zerolog.Logger, opts ...Option) error {
	g, ctx := errgroup.WithContext(ctx)
	logger = logger.With().Str("component", "listener").Str("addr", l.Addr().String()).Logger()

	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})

	g.Go(func() error {
		logger.Info().Msg("listening")
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, net.ErrClosed) {
					logger.Info().Msg("listener closed")
					return errListenerClosed
				}
				return fmt.Errorf("accept: %w", err)
			}

			connLogger := logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
			sessionOpts := append([]Option{WithLogger(connLogger), WithCloser(conn)}, opts...)
			s := New(conn, conn, factory, sessionOpts...)

			g.Go(func() error {
				defer conn.Close()
				err := s.Run(ctx)
				switch {
				case err == nil, errors.Is(err, context.Canceled), errors.Is(err, errListenerClosed):
				default:
					connLogger.Warn().Err(err).Str("session", s.ID()).Msg("session ended with error")
				}
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, errListenerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
