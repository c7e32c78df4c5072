// Package session talks to the external session authority that vouches for
// premium identities.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnavailable means the authority could not be reached or answered with a
// server-side failure. It is a distinct condition from "profile not found":
// callers must not fall back to a cracked classification on it.
var ErrUnavailable = errors.New("session authority unavailable")

// Profile is a verified identity as reported by the authority.
type Profile struct {
	ID   uuid.UUID
	Name string
}

// Verifier answers whether a client has joined through the authority. A nil
// profile with a nil error means the authority does not know the session.
type Verifier interface {
	HasJoined(ctx context.Context, name, hash, ip string) (*Profile, error)
}

// DefaultURL is the Mojang session service.
const DefaultURL = "https://sessionserver.mojang.com"

// Client implements Verifier over the authority's HTTP API.
type Client struct {
	base string
	http *http.Client
	log  *zerolog.Logger
}

// NewClient builds a client for the authority at base. The timeout doubles as
// the external deadline: once it fires, the authority counts as unavailable.
func NewClient(base string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if base == "" {
		base = DefaultURL
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  logger,
	}
}

type wireProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HasJoined asks the authority whether the named client joined with the given
// server hash. ip is optional; when set, it is forwarded so the authority can
// bind the session to the client's source address.
func (c *Client) HasJoined(ctx context.Context, name, hash, ip string) (*Profile, error) {
	q := url.Values{}
	q.Set("username", name)
	q.Set("serverId", hash)
	if ip != "" {
		q.Set("ip", ip)
	}

	endpoint := c.base + "/session/minecraft/hasJoined?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var wp wireProfile
		if err := json.NewDecoder(resp.Body).Decode(&wp); err != nil {
			return nil, fmt.Errorf("%w: decode profile: %v", ErrUnavailable, err)
		}
		id, err := uuid.Parse(wp.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: profile id %q: %v", ErrUnavailable, wp.ID, err)
		}
		return &Profile{ID: id, Name: wp.Name}, nil

	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		// The authority answered and does not know this session.
		return nil, nil

	default:
		if c.log != nil {
			c.log.Warn().Int("status", resp.StatusCode).Msg("session authority returned unexpected status")
		}
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}
