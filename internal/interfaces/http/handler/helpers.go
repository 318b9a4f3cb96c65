package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// dateOnlyLayout accepts bare calendar dates on range filters
const dateOnlyLayout = "2006-01-02"

var (
	errBadUUID   = errors.New("handler: value is not a valid uuid")
	errBadStatus = errors.New("handler: unknown status filter value")
)

// pathUUID parses a uuid path parameter
func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errBadUUID
	}
	return id, nil
}

// queryUUID parses an optional uuid query parameter; absent answers nil
func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errBadUUID
	}
	return &id, nil
}

// queryTime parses an optional RFC 3339 or date-only query parameter
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
