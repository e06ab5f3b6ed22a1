package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"datainsight/internal/core"
	"datainsight/internal/services"
)

const (
	// Defaults of POST /api/generate when a parameter is omitted.
	DefaultNumClients            = 1000
	DefaultTransactionsPerClient = 10

	DefaultRecentLimit = 100
	MaxRecentLimit     = 10000

	maxBodyBytes = 1 << 16
)

// queryInt reads an optional integer parameter bounded by [min, max].
func queryInt(q url.Values, name string, def, min, max int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", core.ErrInvalidArgument, name, v)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%w: %s must be between %d and %d, got %d", core.ErrInvalidArgument, name, min, max, n)
	}
	return n, nil
}

// pathID reads the positive {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid client id %q", core.ErrInvalidArgument, raw)
	}
	return id, nil
}

// parseGenerationParams reads the run size from a JSON body or the query
// string. Range checks are left to GenerationParams.Validate.
func parseGenerationParams(r *http.Request) (services.GenerationParams, error) {
	params := services.GenerationParams{
		NumClients:            DefaultNumClients,
		TransactionsPerClient: DefaultTransactionsPerClient,
	}

	if isJSON(r) && r.ContentLength != 0 {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&params); err != nil && err != io.EOF {
			return params, fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidArgument, err)
		}
		return params, nil
	}

	q := r.URL.Query()
	for name, dst := range map[string]*int{
		"numClients":            &params.NumClients,
		"transactionsPerClient": &params.TransactionsPerClient,
	} {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("%w: %s must be an integer, got %q", core.ErrInvalidArgument, name, v)
		}
		*dst = n
	}
	return params, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
