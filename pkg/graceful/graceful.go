package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/jpillora/overseer"
)

const RestartSignal = syscall.SIGUSR2

// SetupGracefulShutdown calls cancel on the first shutdown or overseer
// restart signal.
func SetupGracefulShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		RestartSignal,
		syscall.SIGHUP,
		syscall.SIGTSTP,
		os.Interrupt,
		overseer.SIGTERM,
		overseer.SIGUSR1,
		overseer.SIGUSR2,
		syscall.SIGINT,
	)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Warn("🔴 Received signal, initiating shutdown")
		signal.Stop(sigCh)
		cancel()
	}()
}
