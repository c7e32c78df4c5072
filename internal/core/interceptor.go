package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/authgate/internal/account"
	"github.com/vovakirdan/authgate/internal/auth"
	"github.com/vovakirdan/authgate/internal/config"
	"github.com/vovakirdan/authgate/internal/host"
	"github.com/vovakirdan/authgate/internal/packet"
	"github.com/vovakirdan/authgate/internal/pipeline"
	"github.com/vovakirdan/authgate/internal/protocol"
	"github.com/vovakirdan/authgate/internal/report"
	"github.com/vovakirdan/authgate/internal/session"
)

// handshake is the pending context recorded between the intent and the login
// name, keyed by channel.
type handshake struct {
	version protocol.Version
	addr    string
	port    int
}

// Interceptor implements pipeline.Hooks: it classifies every login-phase
// message and drives the connection state machine. One instance serves every
// channel of the listening pipeline it is installed on.
type Interceptor struct {
	host      host.Host
	cfg       *config.Config
	engine    *auth.Engine
	accounts  *account.Store
	conns     *Registry
	finalizer *Finalizer
	reporter  *report.Reporter
	log       *zerolog.Logger

	mu         sync.Mutex
	handshakes map[pipeline.Channel]handshake
	injection  pipeline.Injection
}

func NewInterceptor(h host.Host, cfg *config.Config, engine *auth.Engine, accounts *account.Store, finalizer *Finalizer, reporter *report.Reporter, logger *zerolog.Logger) *Interceptor {
	return &Interceptor{
		host:       h,
		cfg:        cfg,
		engine:     engine,
		accounts:   accounts,
		conns:      NewRegistry(cfg.Accounts.CaseSensitiveNicknames),
		finalizer:  finalizer,
		reporter:   reporter,
		log:        logger,
		handshakes: make(map[pipeline.Channel]handshake),
	}
}

// SetInjection hands the interceptor its own removal handle; needed for
// per-channel ejection once authentication resolves.
func (i *Interceptor) SetInjection(inj pipeline.Injection) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.injection = inj
}

// Injection returns the removal handle, nil until SetInjection.
func (i *Interceptor) Injection() pipeline.Injection {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.injection
}

// Connections exposes the live-attempt registry.
func (i *Interceptor) Connections() *Registry {
	return i.conns
}

// Read observes an inbound message. See pipeline.Hooks for the contract.
func (i *Interceptor) Read(ch pipeline.Channel, msg any) (any, error) {
	switch m := msg.(type) {
	case packet.Intent:
		return i.readIntent(ch, m)
	case packet.Hello:
		return i.readHello(ch, m)
	case packet.Key:
		return i.readKey(ch, m)
	}
	return msg, nil
}

func (i *Interceptor) readIntent(ch pipeline.Channel, m packet.Intent) (any, error) {
	// Status probes are none of our business.
	if m.Next != packet.PhaseLogin {
		return m, nil
	}

	version, err := protocol.Lookup(m.Protocol)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.handshakes[ch] = handshake{version: version, addr: m.Host, port: m.Port}
	i.mu.Unlock()

	i.log.Trace().Stringer("version", version).Str("address", m.Host).Msg("handshake recorded")
	return m, nil
}

func (i *Interceptor) readHello(ch pipeline.Channel, m packet.Hello) (any, error) {
	i.mu.Lock()
	hs, ok := i.handshakes[ch]
	delete(i.handshakes, ch)
	i.mu.Unlock()
	if !ok {
		return nil, ErrLoginBeforeHandshake
	}

	name := m.Name

	// A fully-connected player already holds this exact name.
	for _, p := range i.host.OnlinePlayers() {
		if p.Name == name {
			i.reject(ch, packet.NewReason(packet.ReasonNicknameConnected, "nickname", name))
			return nil, nil
		}
	}

	// Per-address connection limit.
	if max := i.cfg.Accounts.MaximumAuthenticatedPerIP; max > 0 {
		addr := remoteIP(ch)
		current := 0
		for _, p := range i.host.OnlinePlayers() {
			if p.Addr != nil && ipOf(p.Addr) == addr {
				current++
			}
		}
		if current >= max {
			i.reject(ch, packet.NewReason(packet.ReasonMaximumPerIP,
				"current", strconv.Itoa(current),
				"maximum", strconv.Itoa(max),
				"address", addr))
			return nil, nil
		}
	}

	// Version whitelist.
	for _, blocked := range i.cfg.Whitelist.BlockedVersions {
		if blocked == hs.version.ID {
			i.reject(ch, packet.NewReason(packet.ReasonBlockedVersion, "version", hs.version.Label))
			return nil, nil
		}
	}

	// Case-sensitivity policy: an existing account whose stored name differs
	// only by case blocks the attempt.
	if i.cfg.Accounts.CaseSensitiveNicknames {
		if existing, ok := i.accounts.GetByNameFold(name); ok && existing.Name() != name {
			i.reject(ch, packet.NewReason(packet.ReasonNicknameCase, "nickname", name))
			return nil, nil
		}
	}

	acct, _ := i.accounts.GetByName(name)
	existing, _ := i.conns.GetByName(name)

	// Cracked admission pre-check against what is already known.
	if !i.cfg.Whitelist.AllowCrackedUsers {
		if acct != nil && acct.Type() == account.TypeCracked {
			i.reject(ch, packet.NewReason(packet.ReasonCrackedNotAllowed,
				"nickname", acct.Name(), "uuid", acct.UniqueID().String()))
			return nil, nil
		}
		if existing != nil && existing.Type() == account.TypeCracked {
			i.reject(ch, packet.NewReason(packet.ReasonCrackedNotAllowed,
				"nickname", existing.Name(), "uuid", existing.UniqueID().String()))
			return nil, nil
		}
	}

	var conn *Connection
	if existing != nil {
		i.conns.Rebind(existing, ch)
		conn = existing
		i.log.Trace().Str("nickname", conn.Name()).Msg("connection attempt reconnected")
	} else {
		conn = NewConnection(ch, name, hs.version)
		i.conns.Add(conn)
		i.log.Trace().Str("nickname", conn.Name()).Msg("started new connection attempt")
	}

	conn.Advance(StateLogin)
	if acct != nil {
		conn.SetAccount(acct)
	}
	return m, nil
}

func (i *Interceptor) readKey(ch pipeline.Channel, m packet.Key) (any, error) {
	conn, ok := i.conns.Get(ch)
	if !ok {
		return nil, ErrNoConnection
	}

	// The state transition is owed no matter how authentication goes.
	defer conn.Advance(StateEncrypted)

	if err := i.engine.ValidateChallenge(conn.Challenge(), m.Challenge); err != nil {
		return nil, err
	}

	secret, err := i.engine.DecryptSecret(m.SharedSecret)
	if err != nil {
		return nil, err
	}

	ip := ""
	if i.host.Authenticated() {
		ip = remoteIP(ch)
	}

	res, err := i.engine.Classify(context.Background(), conn.Name(), secret, ip)
	if err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			i.log.Error().Err(err).Str("nickname", conn.Name()).Msg("session authority unavailable")
			_ = ch.Write(packet.Disconnect{Reason: packet.NewReason(packet.ReasonServersUnavailable)})
			return nil, nil
		}
		i.log.Error().Err(err).Str("nickname", conn.Name()).Msg("cannot authenticate player")
		i.reporter.Report(err)
		return nil, nil
	}

	if res.Type == account.TypePremium {
		conn.SetType(account.TypePremium)
		conn.SetUniqueID(res.UniqueID)

		if err := i.host.AcceptKey(ch, secret); err != nil {
			i.log.Error().Err(err).Str("nickname", conn.Name()).Msg("cannot authenticate premium player")
			i.reporter.Report(err)
		}
		return nil, nil
	}

	// Cracked fallback. A premium-typed account cannot downgrade while
	// premium authentication is enforced.
	if acct := conn.Account(); acct != nil && acct.Type() == account.TypePremium && i.cfg.PremiumAuthentication.Enabled {
		_ = ch.Write(packet.Disconnect{Reason: packet.NewReason(packet.ReasonPremiumRequired, "nickname", conn.Name())})
		return nil, nil
	}

	conn.SetType(account.TypeCracked)
	conn.SetUniqueID(res.UniqueID)

	if !i.cfg.Whitelist.AllowCrackedUsers {
		_ = ch.Write(packet.Disconnect{Reason: packet.NewReason(packet.ReasonCrackedNotAllowed,
			"nickname", conn.Name(), "uuid", res.UniqueID.String())})
		return nil, nil
	}

	if err := i.host.EnableEncryption(ch, secret); err != nil {
		i.log.Error().Err(err).Str("nickname", conn.Name()).Msg("cannot authenticate cracked player")
		i.reporter.Report(err)
		return nil, nil
	}

	i.finishAsync(conn)
	return nil, nil
}

// Write observes an outbound message. See pipeline.Hooks for the contract.
func (i *Interceptor) Write(ch pipeline.Channel, msg any) (any, error) {
	switch m := msg.(type) {
	case packet.EncryptionRequest:
		return i.writeEncryptionRequest(ch, m)
	case packet.Compression:
		if conn, ok := i.conns.Get(ch); ok {
			conn.Advance(StateCompression)
		}
		return m, nil
	case packet.GameProfile:
		return i.writeProfile(ch, m)
	case packet.Disconnect:
		_ = ch.Close()
		return nil, nil
	}
	return msg, nil
}

func (i *Interceptor) writeEncryptionRequest(ch pipeline.Channel, m packet.EncryptionRequest) (any, error) {
	conn, ok := i.conns.Get(ch)
	if !ok {
		return nil, ErrNoConnection
	}

	// The nonce the client must echo. Kept on the attempt for validation;
	// invalidated on rebind.
	conn.SetChallenge(m.Challenge)

	// The attached account settles the type early.
	if acct := conn.Account(); acct != nil {
		conn.SetType(acct.Type())
	}

	if !i.cfg.PremiumAuthentication.Enabled {
		return m, nil
	}

	switch conn.Type() {
	case account.TypeUnknown:
		if conn.Reconnecting() {
			// Second attempt: run the real key exchange to prove premium.
			return m, nil
		}
		// First sight of this identity: instruct a reconnect so a premium
		// client can present a verifiable session.
		conn.BeginReconnection()
		i.host.ResetThrottle(ch.RemoteAddr())
		i.log.Debug().Str("nickname", conn.Name()).Msg("requesting reconnection for premium verification")
		return packet.Disconnect{Reason: packet.NewReason(packet.ReasonAccountVerified, "nickname", conn.Name())}, nil

	case account.TypeCracked:
		// Known cracked identity: skip the key exchange entirely.
		conn.Advance(StateEncrypted)
		conn.SetUniqueID(auth.OfflineUUID(conn.Name()))
		i.finishAsync(conn)
		return nil, nil

	default:
		conn.Advance(StateEncrypting)
		return m, nil
	}
}

func (i *Interceptor) writeProfile(ch pipeline.Channel, m packet.GameProfile) (any, error) {
	conn, ok := i.conns.Get(ch)
	if !ok {
		return nil, ErrNoConnection
	}

	if conn.UniqueID() == uuid.Nil {
		return nil, ErrIdentityNotResolved
	}

	// The attempt is flushed whatever happens to the account step.
	defer i.conns.Remove(conn)

	acct := conn.Account()
	if acct == nil {
		var err error
		acct, err = i.accounts.GetOrCreate(conn.UniqueID(), conn.Name())
		if err != nil {
			i.log.Error().Err(err).Str("nickname", conn.Name()).Msg("cannot resolve account on login success")
			i.reporter.Report(err)
			return m, nil
		}
	}

	acct.SetType(conn.Type())
	acct.SetName(conn.Name())
	acct.SetLastSeen(time.Now())
	if conn.Type() == account.TypePremium && !i.cfg.Authentication.RequiredForPremiumPlayers {
		acct.SetAuthenticated(true)
	}
	i.accounts.Sync(context.Background(), acct)

	conn.Advance(StateSuccess)
	i.eject(ch)

	i.log.Debug().
		Str("nickname", conn.Name()).
		Stringer("uuid", conn.UniqueID()).
		Stringer("type", conn.Type()).
		Msg("login attempt completed")
	return m, nil
}

// Closed handles a channel close with a one-shot debounce: the first close of
// a live attempt is tolerated (transport-level reconnect races), the second
// flushes it.
func (i *Interceptor) Closed(ch pipeline.Channel) {
	// An intent with no following login name must not outlive its channel.
	i.mu.Lock()
	delete(i.handshakes, ch)
	i.mu.Unlock()

	conn, ok := i.conns.Get(ch)
	if !ok || conn.Reconnecting() {
		return
	}

	if !conn.Pending() {
		conn.SetPending(true)
		return
	}
	conn.SetPending(false)

	i.conns.Remove(conn)

	if conn.Account() != nil {
		return
	}

	// Best effort: persist the abandoned attempt as cracked so repeated
	// partial attempts do not leak unresolved state.
	id := auth.OfflineUUID(conn.Name())
	acct, err := i.accounts.GetOrCreate(id, conn.Name())
	if err != nil {
		i.log.Error().Err(err).Str("nickname", conn.Name()).Msg("cannot mark abandoned attempt as cracked")
		i.reporter.Report(err)
	} else {
		acct.SetType(account.TypeCracked)
		i.accounts.Sync(context.Background(), acct)
	}

	i.eject(ch)
}

// Exception terminates the offending connection with a generic notice. It is
// the end of the line for errors: nothing propagates past this boundary.
func (i *Interceptor) Exception(ch pipeline.Channel, cause error) {
	_ = ch.Write(packet.Disconnect{Reason: packet.NewReason(packet.ReasonAuthenticationError)})
	_ = ch.Close()
	i.reporter.Report(fmt.Errorf("connection attempt failed: %w", cause))
}

// finishAsync runs the completion step for a locally-resolved identity off
// the transport thread: account resolution and the host-side login events.
func (i *Interceptor) finishAsync(conn *Connection) {
	id := conn.UniqueID()
	name := conn.Name()
	typ := conn.Type()
	ch := conn.Channel()

	i.finalizer.Submit(name, func() error {
		acct, err := i.accounts.GetOrCreate(id, name)
		if err != nil {
			return fmt.Errorf("resolve account: %w", err)
		}
		acct.SetType(typ)
		i.accounts.Sync(context.Background(), acct)

		if err := i.host.CompleteLogin(ch, packet.GameProfile{ID: id, Name: name}); err != nil {
			return fmt.Errorf("fire login completion: %w", err)
		}
		return nil
	})
}

func (i *Interceptor) reject(ch pipeline.Channel, reason packet.Reason) {
	i.log.Debug().Str("reason", reason.Key).Msg("login attempt rejected")
	_ = ch.Write(packet.Disconnect{Reason: reason})
}

func (i *Interceptor) eject(ch pipeline.Channel) {
	i.mu.Lock()
	inj := i.injection
	i.mu.Unlock()
	if inj != nil {
		inj.Eject(ch)
	}
}

// remoteIP extracts the bare IP of a channel's source address.
func remoteIP(ch pipeline.Channel) string {
	if addr := ch.RemoteAddr(); addr != nil {
		return ipOf(addr)
	}
	return ""
}

func ipOf(addr net.Addr) string {
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}
