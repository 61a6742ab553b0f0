package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"

	"coursehub/pkg/platform/sentinel"
)

// MapError classifies a driver error into a sentinel. This is the single
// place SQLSTATEs are inspected; services never see driver errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == "23505": // unique_violation
			return fmt.Errorf("%w: %s", sentinel.ErrConflict, pqErr.Constraint)
		case code == "40001" || code == "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", sentinel.ErrConcurrentModification, err)
		case strings.HasPrefix(code, "08"): // connection exceptions
			return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
		case code == "57P01" || code == "57P02" || code == "57P03": // server shutdown
			return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
		}
	}
	return err
}
