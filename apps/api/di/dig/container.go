package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/juku/apps/api/echo"
	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/attendance"
	"github.com/trezcool/juku/core/schedule"
	"github.com/trezcool/juku/services/locker"
	"github.com/trezcool/juku/services/logger"
	"github.com/trezcool/juku/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Closer releases the connections opened for the document store and the lock backend.
type Closer func()

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newBackends(conf *core.Config, logger core.Logger, dbLoggerParam DBLoggerParam) (core.DocStore, core.Locker, Closer) {
	ctx := context.Background()
	backend, err := database.OpenStore(ctx, conf, true /* migrate */)
	if err != nil {
		dbLoggerParam.Logger.Fatal(fmt.Sprintf("setting up document store: %v", err), err)
	}
	lck, closeLock, err := locksvc.New(ctx, conf.Lock, logger)
	if err != nil {
		_ = backend.Close()
		logger.Fatal(fmt.Sprintf("setting up document locks: %v", err), err)
	}
	return backend.Store, lck, func() {
		closeLock()
		if err := backend.Close(); err != nil {
			dbLoggerParam.Logger.Error("Failed to close", err)
		}
	}
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	schedule.RegisterValidators(validate, translator)
	return validate
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	svc *attendance.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Attendance: svc,
		Validate:   validate,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(func() (*core.Config, error) {
		conf := core.NewConfig()
		return conf, conf.Validate()
	}))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newBackends))
	must(c.Provide(attendance.NewService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
