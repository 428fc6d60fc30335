package cmd

import (
	"errors"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/pipeline"
)

// hintError carries advice for the operator next to the failure.
type hintError struct {
	err  error
	hint string
}

func withHint(err error, hint string) error { return &hintError{err: err, hint: hint} }

func (e *hintError) Error() string { return e.err.Error() }
func (e *hintError) Unwrap() error { return e.err }

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// exitWith is the only place a command exits on failure. Commands return
// their errors up to Run, so deferred cleanup has already happened here.
func exitWith(l *zap.Logger, err error) {
	var runErr *pipeline.RunError
	if errors.As(err, &runErr) {
		l.Fatal(runErr.Message(), zap.String("run_id", runErr.RunID), zap.Error(runErr.Err))
	}

	fields := []zap.Field{zap.Error(err)}
	var hinted *hintError
	if errors.As(err, &hinted) {
		fields = append(fields, zap.String("hint", hinted.hint))
	}
	l.Fatal("command failed", fields...)
}
