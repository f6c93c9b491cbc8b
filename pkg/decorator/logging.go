package decorator

import (
	"context"
	"time"

	"github.com/architeacher/checkpoint/pkg/logger"
)

type (
	commandLoggingDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		logger logger.Logger
	}

	queryLoggingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		logger logger.Logger
	}
)

func (d commandLoggingDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	log := d.logger.WithContext(ctx).With().
		Str("command", generateActionName(cmd)).
		Logger()

	start := time.Now()

	log.Debug().Msg("executing command")

	defer func() {
		if err != nil {
			log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("command failed")

			return
		}

		log.Info().Dur("elapsed", time.Since(start)).Msg("command executed")
	}()

	return d.base.Handle(ctx, cmd)
}

func (d queryLoggingDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	log := d.logger.WithContext(ctx).With().
		Str("query", generateActionName(query)).
		Logger()

	start := time.Now()

	defer func() {
		if err != nil {
			log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("query failed")

			return
		}

		log.Debug().Dur("elapsed", time.Since(start)).Msg("query executed")
	}()

	return d.base.Execute(ctx, query)
}
