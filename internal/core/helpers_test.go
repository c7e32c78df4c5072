package core

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/authgate/internal/account"
	"github.com/vovakirdan/authgate/internal/auth"
	"github.com/vovakirdan/authgate/internal/config"
	"github.com/vovakirdan/authgate/internal/host"
	"github.com/vovakirdan/authgate/internal/packet"
	"github.com/vovakirdan/authgate/internal/pipeline"
	"github.com/vovakirdan/authgate/internal/report"
	"github.com/vovakirdan/authgate/internal/session"
)

// fakeChannel routes writes back through the dispatcher like a real transport
// would, so outbound interception is exercised end to end. submitted records
// every message handed to Write before hooks run; sent records what survived.
type fakeChannel struct {
	addr net.Addr
	disp *pipeline.Dispatcher

	mu        sync.Mutex
	submitted []any
	sent      []any
	closes    int
}

func newFakeChannel(disp *pipeline.Dispatcher, addr string) *fakeChannel {
	return &fakeChannel{
		addr: &net.TCPAddr{IP: net.ParseIP(addr), Port: 25565},
		disp: disp,
	}
}

func (c *fakeChannel) Write(msg any) error {
	c.mu.Lock()
	c.submitted = append(c.submitted, msg)
	c.mu.Unlock()

	out := c.disp.Outbound(c, msg)
	if out != nil {
		c.mu.Lock()
		c.sent = append(c.sent, out)
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.disp.Closed(c)
	return nil
}

func (c *fakeChannel) RemoteAddr() net.Addr {
	return c.addr
}

func (c *fakeChannel) submittedMessages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.submitted...)
}

func (c *fakeChannel) sentMessages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.sent...)
}

// lastDisconnect returns the reason of the most recent disconnect observed on
// the channel, whether written directly or substituted for another message.
func (c *fakeChannel) lastDisconnect(t *testing.T) packet.Reason {
	t.Helper()
	msgs := append(c.submittedMessages(), c.sentMessages()...)
	for i := len(msgs) - 1; i >= 0; i-- {
		if d, ok := msgs[i].(packet.Disconnect); ok {
			return d.Reason
		}
	}
	t.Fatalf("no disconnect observed on channel")
	return packet.Reason{}
}

func playerNamed(name string) host.Player {
	return host.Player{Name: name}
}

// fakeHost plays the game server: it owns the dispatcher and records the
// login continuation calls the interceptor makes. CompleteLogin pushes the
// resulting profile back through the outbound pipeline, like the real login
// success packet would travel.
type fakeHost struct {
	platform      string
	protocol      int
	key           *rsa.PrivateKey
	serverID      string
	authenticated bool
	disp          *pipeline.Dispatcher

	mu             sync.Mutex
	players        []host.Player
	acceptedKeys   [][]byte
	encrypted      [][]byte
	completed      []packet.GameProfile
	throttleResets []net.Addr
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &fakeHost{
		platform: "java",
		protocol: 766,
		key:      key,
		disp:     pipeline.NewDispatcher(),
	}
}

func (h *fakeHost) Platform() string         { return h.platform }
func (h *fakeHost) ProtocolVersion() int     { return h.protocol }
func (h *fakeHost) KeyPair() *rsa.PrivateKey { return h.key }
func (h *fakeHost) ServerID() string         { return h.serverID }

func (h *fakeHost) Authenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authenticated
}

func (h *fakeHost) SetAuthenticated(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authenticated = v
}

func (h *fakeHost) OnlinePlayers() []host.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.Player(nil), h.players...)
}

func (h *fakeHost) Install(hooks pipeline.Hooks) (pipeline.Injection, error) {
	return h.disp.Install(hooks)
}

func (h *fakeHost) ResetThrottle(addr net.Addr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.throttleResets = append(h.throttleResets, addr)
}

func (h *fakeHost) AcceptKey(ch pipeline.Channel, secret []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.acceptedKeys = append(h.acceptedKeys, secret)
	return nil
}

func (h *fakeHost) EnableEncryption(ch pipeline.Channel, secret []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.encrypted = append(h.encrypted, secret)
	return nil
}

func (h *fakeHost) CompleteLogin(ch pipeline.Channel, profile packet.GameProfile) error {
	h.mu.Lock()
	h.completed = append(h.completed, profile)
	h.mu.Unlock()

	h.disp.Outbound(ch, profile)
	return nil
}

func (h *fakeHost) completedLogins() []packet.GameProfile {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]packet.GameProfile(nil), h.completed...)
}

// fakeVerifier is an in-memory session authority.
type fakeVerifier struct {
	profiles map[string]*session.Profile
	err      error
}

func (f *fakeVerifier) HasJoined(_ context.Context, name, _, _ string) (*session.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.profiles == nil {
		return nil, nil
	}
	return f.profiles[name], nil
}

// testEnv assembles an interceptor installed on a fake host, with the given
// configuration and session authority.
type testEnv struct {
	t        *testing.T
	cfg      *config.Config
	host     *fakeHost
	verifier *fakeVerifier
	engine   *auth.Engine
	accounts *account.Store
	fin      *Finalizer
	icpt     *Interceptor
}

func newTestEnv(t *testing.T, cfg config.Config, verifier *fakeVerifier) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	h := newFakeHost(t)
	if verifier == nil {
		verifier = &fakeVerifier{}
	}

	store := account.NewStore(cfg.Accounts.CaseSensitiveNicknames, nil, &logger)
	engine := auth.NewEngine(h.key, h.serverID, verifier, &logger)
	reporter := report.New("", &logger)
	fin := NewFinalizer(1, reporter, &logger)
	icpt := NewInterceptor(h, &cfg, engine, store, fin, reporter, &logger)

	inj, err := h.Install(icpt)
	if err != nil {
		t.Fatalf("install hooks: %v", err)
	}
	icpt.SetInjection(inj)

	return &testEnv{
		t:        t,
		cfg:      &cfg,
		host:     h,
		verifier: verifier,
		engine:   engine,
		accounts: store,
		fin:      fin,
		icpt:     icpt,
	}
}

func (e *testEnv) channel(addr string) *fakeChannel {
	return newFakeChannel(e.host.disp, addr)
}

// login drives handshake and login-name messages for the channel.
func (e *testEnv) login(ch *fakeChannel, name string, proto int) {
	e.t.Helper()
	e.host.disp.Inbound(ch, packet.Intent{Protocol: proto, Host: "localhost", Port: 25565, Next: packet.PhaseLogin})
	e.host.disp.Inbound(ch, packet.Hello{Name: name})
}

// keyExchange issues the outbound key request and answers it with a correctly
// encrypted echo and shared secret, like a well-behaved client.
func (e *testEnv) keyExchange(ch *fakeChannel, secret []byte) {
	e.t.Helper()

	challenge := []byte{0x13, 0x37, 0x42, 0x99}
	der, err := e.engine.PublicKeyDER()
	if err != nil {
		e.t.Fatalf("public key: %v", err)
	}
	ch.Write(packet.EncryptionRequest{ServerID: e.host.serverID, PublicKey: der, Challenge: challenge})

	encChallenge, err := rsa.EncryptPKCS1v15(rand.Reader, &e.host.key.PublicKey, challenge)
	if err != nil {
		e.t.Fatalf("encrypt challenge: %v", err)
	}
	encSecret, err := rsa.EncryptPKCS1v15(rand.Reader, &e.host.key.PublicKey, secret)
	if err != nil {
		e.t.Fatalf("encrypt secret: %v", err)
	}
	e.host.disp.Inbound(ch, packet.Key{SharedSecret: encSecret, Challenge: encChallenge})
}

// drain waits for queued login completions.
func (e *testEnv) drain() {
	e.fin.Close()
}
