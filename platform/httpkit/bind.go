package httpkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxBodyBytes bounds request bodies read by BindWrappedJSON.
const maxBodyBytes = 1 << 20

// BindWrappedJSON decodes the request body into dst. Clients may send the
// object itself or wrap it under key, for example {"lead": {...}}.
func BindWrappedJSON(c *gin.Context, key string, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return errors.New("empty request body")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return err
	}
	if inner, ok := fields[key]; ok && len(fields) == 1 {
		body = inner
	}
	return json.Unmarshal(body, dst)
}

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
