package reader

import (
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// diagnostics turns backend failures into *ReadError values, logging the
// cause with a stack trace first when the call is verbose.
type diagnostics struct {
	log     logrus.FieldLogger
	backend string
}

func newDiagnostics(log logrus.FieldLogger, backend string) diagnostics {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return diagnostics{
		log:     log.WithField("component", backend+"-reader"),
		backend: backend,
	}
}

// fail is called exactly once per failed operation, at the client call.
func (d diagnostics) fail(path string, o ReadOptions, cause error) error {
	if o.Verbose {
		d.log.WithFields(logrus.Fields{
			"path":      path,
			"container": o.Container,
		}).Debug(fmt.Sprintf("%+v", pkgerrors.WithStack(cause)))
	}

	return &ReadError{Backend: d.backend, Path: path, Err: cause}
}
