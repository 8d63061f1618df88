// Command server is the cardhall entrypoint: it wires the Postgres wallet
// store, Redis event fan-out, Kafka/ClickHouse analytics, and the gin +
// gorilla/websocket transport around the router and channel core. Grounded
// on the teacher's cmd/game-server/main.go (gin.Default, a websocket
// upgrader per table, a graceful-shutdown signal handler), generalized
// from a single poker-table map to the full Router/Tournament wiring.
package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/cardhall/core/internal/aiactor"
	"github.com/cardhall/core/internal/analytics"
	"github.com/cardhall/core/internal/authz"
	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/config"
	"github.com/cardhall/core/internal/heuristics"
	"github.com/cardhall/core/internal/ratelimit"
	"github.com/cardhall/core/internal/router"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/internal/tablestate/blackjack"
	"github.com/cardhall/core/internal/tablestate/poker"
	"github.com/cardhall/core/internal/tournament"
	"github.com/cardhall/core/internal/tournamentdb"
	"github.com/cardhall/core/internal/turnmanager"
	"github.com/cardhall/core/internal/wallet"
	"github.com/cardhall/core/internal/walletdb"
	"github.com/cardhall/core/pkg/cards"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// server bundles the collaborators an incoming connection needs.
type server struct {
	logger *log.Logger
	cfg    *config.Config

	rt     *router.Router
	ledger *wallet.Ledger
	heur   *heuristics.Tracker

	bjOps *blackjack.Ops
	pkOps *poker.Ops

	producer *analytics.Producer
	clk      quartz.Clock

	mu          sync.Mutex
	conns       map[string]*websocket.Conn        // subscriber id -> conn
	managers    map[string]*turnmanager.Manager   // channel id -> turn manager
	tournaments map[string]*tournament.Tournament // tournament id -> controller

	tournamentDB *tournamentdb.Postgres

	randMu sync.Mutex
	aiRand *rand.Rand
}

func newServer(logger *log.Logger, cfg *config.Config) (*server, error) {
	var store wallet.Store
	if pg, err := walletdb.Open(
		cfg.Server.PostgresHost, cfg.Server.PostgresPort, cfg.Server.PostgresDB,
		cfg.Server.PostgresUser, cfg.Server.PostgresPassword,
	); err == nil {
		store = pg
	} else {
		logger.Warn("wallet postgres unavailable, falling back to in-memory store", "err", err)
	}

	ledger := wallet.NewLedger(store, cfg.Blackjack.StartingChips)
	heur := heuristics.New(heuristics.Config{
		StreakWindow:   cfg.Heuristics.StreakWindow,
		TimeoutWindow:  time.Duration(cfg.Heuristics.TimeoutWindow) * time.Minute,
		AFKThreshold:   cfg.Heuristics.AFKThreshold,
		TurnMin:        cfg.Timers.TurnMin(),
		TurnMax:        cfg.Timers.TurnMax(),
		TurnBase:       cfg.Timers.TurnBase(),
		TiltClampRatio: cfg.Heuristics.TiltClamp,
		TiltClampAt:    2.0,
	})

	var redisClient *redis.Client
	if cfg.Server.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Server.RedisAddr})
	}

	rt := router.New(logger, authz.AllowAll{}, ratelimit.NewFixedWindow(20, cfg.Timers.TurnBase()), redisClient, cfg.Server.RedisChannel)

	var producer *analytics.Producer
	if p, err := analytics.NewProducer(analytics.DefaultKafkaProducerConfig(cfg.Server.KafkaBrokers, cfg.Server.KafkaTopic)); err == nil {
		producer = p
	} else {
		logger.Warn("analytics kafka producer unavailable", "err", err)
	}

	var tournamentDB *tournamentdb.Postgres
	if tdb, err := tournamentdb.Open(
		cfg.Server.PostgresHost, cfg.Server.PostgresPort, cfg.Server.PostgresDB,
		cfg.Server.PostgresUser, cfg.Server.PostgresPassword,
	); err == nil {
		tournamentDB = tdb
	} else {
		logger.Warn("tournament postgres unavailable, bracket state will not persist across restarts", "err", err)
	}

	return &server{
		logger: logger,
		cfg:    cfg,
		rt:     rt,
		ledger: ledger,
		heur:   heur,
		bjOps: blackjack.New(blackjack.Config{
			Decks: cfg.Blackjack.Decks, MinBet: cfg.Blackjack.MinBet, MaxBet: cfg.Blackjack.MaxBet,
			BettingWindow: cfg.Timers.BettingWindow(), ActionWindow: cfg.Timers.TurnBase(),
			DealerHitsSoft17: true, SurrenderAllowed: true,
		}),
		pkOps: poker.New(poker.Config{
			SmallBlind: cfg.Poker.SmallBlind, BigBlind: cfg.Poker.BigBlind,
			MinBuyIn: cfg.Poker.StartingChips / 10, MaxBuyIn: cfg.Poker.StartingChips * 10,
			BettingWindow: cfg.Timers.BettingWindow(), ActionWindow: cfg.Timers.TurnBase(),
		}),
		producer:     producer,
		clk:          quartz.NewReal(),
		conns:        map[string]*websocket.Conn{},
		managers:     map[string]*turnmanager.Manager{},
		tournaments:  map[string]*tournament.Tournament{},
		tournamentDB: tournamentDB,
		aiRand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

type wsSubscriber struct {
	id  string
	srv *server
}

func (s wsSubscriber) ID() string { return s.id }
func (s wsSubscriber) Deliver(evt tablestate.Event) {
	s.srv.mu.Lock()
	conn, ok := s.srv.conns[s.id]
	s.srv.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.WriteJSON(evt); err != nil {
		s.srv.logger.Warn("event delivery failed", "subscriber", s.id, "err", err)
	}
}

func (s *server) handleWebSocket(c *gin.Context) {
	channelID := c.Param("channelId")
	login := c.Query("login")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	subscriberID := channelID + ":" + login
	s.mu.Lock()
	s.conns[subscriberID] = conn
	s.mu.Unlock()
	s.rt.Subscribe(channelID, wsSubscriber{id: subscriberID, srv: s})
	defer func() {
		s.rt.Unsubscribe(channelID, subscriberID)
		s.mu.Lock()
		delete(s.conns, subscriberID)
		s.mu.Unlock()
	}()

	// Joining a channel over the socket seats login (or queues it once the
	// mode's seat cap is reached); a connection with no login query param
	// is a spectator only.
	if login != "" {
		if err := s.rt.Dispatch(context.Background(), subscriberID, channelID, "join", func(ch *tablestate.Channel) error {
			ch.Seat(login, false)
			return nil
		}); err != nil {
			s.logger.Warn("seat assignment failed", "channel", channelID, "login", login, "err", err)
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "err", err)
			}
			return
		}

		var cmd tablestate.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.logger.Warn("command decode failed", "err", err)
			continue
		}
		if cmd.Login == "" {
			cmd.Login = login
		}

		if err := s.dispatchCommand(channelID, subscriberID, cmd); err != nil {
			s.logger.Warn("command rejected", "channel", channelID, "login", cmd.Login, "err", err)
		}
	}
}

// newAutoAction is the turn-clock expiry fallback for human seats (spec
// §4.7): check if nothing is owed else fold for poker, stand for
// blackjack. AI seats never reach this path — turnmanager.ArmTurn skips
// them entirely.
func newAutoAction(mode tablestate.Mode) turnmanager.AutoAction {
	return func(c *tablestate.Channel, login string) tablestate.Command {
		if mode == tablestate.ModePoker {
			if seat := c.SeatOf(login); seat != nil && c.CurrentBetToMatch <= seat.StreetContribution {
				return tablestate.Command{Login: login, Action: "check"}
			}
			return tablestate.Command{Login: login, Action: "fold"}
		}
		return tablestate.Command{Login: login, Action: "stand"}
	}
}

// managerFor lazily creates the turn manager for a channel the first time a
// command touches it; cheap enough not to warrant a separate registration
// step alongside handleCreateChannel.
func (s *server) managerFor(ch *tablestate.Channel) *turnmanager.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.managers[ch.ID]; ok {
		return m
	}
	m := turnmanager.New(s.clk, s.logger, ch, newAutoAction(ch.Mode), func(cmd tablestate.Command) {
		// A timed-out human is exactly what the AFK/tilt tracker wants to
		// hear about (spec §4.7) — record it before the fallback action
		// re-enters the dispatch path as an ordinary command.
		s.heur.RecordTimeout(cmd.Login, s.clk.Now())
		if err := s.dispatchCommand(ch.ID, ch.ID+":"+cmd.Login, cmd); err != nil {
			s.logger.Warn("auto-action rejected", "channel", ch.ID, "login", cmd.Login, "err", err)
		}
	})
	s.managers[ch.ID] = m
	return m
}

// aiPolicyFor returns the seated-bot policy for a channel's mode.
func aiPolicyFor(mode tablestate.Mode) aiactor.Policy {
	if mode == tablestate.ModePoker {
		return aiactor.PokerPolicy
	}
	return aiactor.BlackjackPolicy
}

// opsFor returns the shared ModeOps instance for mode.
func (s *server) opsFor(mode tablestate.Mode) tablestate.ModeOps {
	if mode == tablestate.ModePoker {
		return s.pkOps
	}
	return s.bjOps
}

// balanceFor reads login's current chip balance, routed to the tournament
// stack when ch carries a TournamentBinding instead of the durable wallet
// (spec §4.2, §4.9).
func (s *server) balanceFor(ch *tablestate.Channel, login string) int64 {
	if ch.Tournament != nil {
		return s.ledger.TournamentStack(ch.Tournament.TournamentID, login, 0)
	}
	return s.ledger.Balance(login)
}

// debitFor builds the ModeOps debit callback for ch, spending from the
// tournament stack instead of the wallet when the channel is bound to one.
func (s *server) debitFor(ch *tablestate.Channel) func(login string, amount int64) error {
	return func(login string, amount int64) error {
		if ch.Tournament != nil {
			_, err := s.ledger.DebitStack(ch.Tournament.TournamentID, login, amount)
			return err
		}
		_, err := s.ledger.Debit(login, amount)
		return err
	}
}

// creditFor is debitFor's settlement-side counterpart.
func (s *server) creditFor(ch *tablestate.Channel) func(login string, amount int64) {
	return func(login string, amount int64) {
		if ch.Tournament != nil {
			s.ledger.CreditStack(ch.Tournament.TournamentID, login, amount)
			return
		}
		s.ledger.Credit(login, amount)
	}
}

// recordHeuristics feeds the settled round's outcomes into the tilt/streak
// tracker (spec §4.7). preBalances is each human seat's wallet/stack
// balance captured just before credit ran, so lastBetRatio can be computed
// as bet / (bet + postBetBalance) exactly as specified.
func (s *server) recordHeuristics(ch *tablestate.Channel, payouts, preBalances map[string]int64) {
	for _, seat := range ch.Seats {
		if seat.IsAI || seat.Bet == 0 {
			continue
		}
		won := payouts[seat.Login] > seat.Bet
		ratio := 0.0
		if denom := float64(seat.Bet + preBalances[seat.Login]); denom > 0 {
			ratio = float64(seat.Bet) / denom
		}
		s.heur.RecordOutcome(seat.Login, won, ratio)
	}
}

// dispatchCommand routes cmd to the handler for its lifecycle stage: the
// betting-window open/close pair, a wager, or an in-round action (spec
// §4.4/§4.5/§4.6 round lifecycle).
func (s *server) dispatchCommand(channelID, subscriberID string, cmd tablestate.Command) error {
	switch cmd.Action {
	case "openBetting", "startNow":
		return s.openBetting(channelID, subscriberID)
	case "placeBet":
		return s.placeBet(channelID, subscriberID, cmd)
	case "forceAdvance":
		return s.forceAdvance(channelID, subscriberID)
	default:
		return s.act(channelID, subscriberID, cmd)
	}
}

// openBetting (re)starts a channel's betting window: idle/settled only,
// arming the betting timer so an unattended table still deals once the
// window closes (spec §4.3 Timer Betting, review: ArmBetting now has a
// real caller).
func (s *server) openBetting(channelID, subscriberID string) error {
	return s.rt.Dispatch(context.Background(), subscriberID, channelID, "openBetting", func(ch *tablestate.Channel) error {
		if ch.Phase != tablestate.PhaseIdle && ch.Phase != tablestate.PhaseSettled {
			return cherr.ErrOutOfPhase
		}
		ops := s.opsFor(ch.Mode)
		mgr := s.managerFor(ch)
		mgr.CancelAll()
		ops.StartBetting(ch)

		d := ops.BettingDuration()
		mgr.ArmBetting(d, func() {
			if err := s.dispatchCommand(ch.ID, ch.ID+":system", tablestate.Command{Action: "forceAdvance"}); err != nil {
				s.logger.Warn("betting window auto-advance failed", "channel", ch.ID, "err", err)
			}
		})
		s.rt.Emit(tablestate.Event{
			Channel: ch.ID, Kind: tablestate.EventBettingStarted, At: s.clk.Now(),
			Payload: tablestate.BettingStartedPayload{Duration: d, EndsAt: s.clk.Now().Add(d), Mode: ch.Mode},
		})
		return nil
	})
}

// placeBet rejects a bet inside the per-login betting cooldown (not applied
// on tournament-bound channels), clamps the requested wager through the
// tilt tracker (spec §4.7 ClampBet), then debits and records it via
// ModeOps.PlaceBet.
func (s *server) placeBet(channelID, subscriberID string, cmd tablestate.Command) error {
	return s.rt.Dispatch(context.Background(), subscriberID, channelID, "placeBet", func(ch *tablestate.Channel) error {
		if seat := ch.SeatOf(cmd.Login); ch.Tournament == nil && seat != nil && !seat.LastBetAt.IsZero() &&
			time.Since(seat.LastBetAt) < s.cfg.Timers.BettingCooldown() {
			return cherr.New(cherr.InvalidAction, "betting cooldown")
		}
		available := s.balanceFor(ch, cmd.Login)
		amount := s.heur.ClampBet(cmd.Login, cmd.Amount, available)
		ops := s.opsFor(ch.Mode)
		return ops.PlaceBet(ch, cmd.Login, amount, s.debitFor(ch))
	})
}

// forceAdvance closes the betting window early (client-issued) or on
// expiry (turn manager's ArmBetting onExpire) and deals the round. If
// nobody wagered, Deal lands straight in PhaseShowdown and the round
// settles with an empty payout set rather than sitting open forever.
func (s *server) forceAdvance(channelID, subscriberID string) error {
	return s.rt.Dispatch(context.Background(), subscriberID, channelID, "forceAdvance", func(ch *tablestate.Channel) error {
		if ch.Phase != tablestate.PhaseBetting {
			return cherr.ErrOutOfPhase
		}
		ops := s.opsFor(ch.Mode)
		mgr := s.managerFor(ch)
		mgr.CancelAll()
		ops.Deal(ch)

		if ch.Phase == tablestate.PhaseShowdown {
			s.settleRoundLocked(ch, ops, mgr)
			return nil
		}

		turnDuration := s.heur.TurnDuration(ch.CurrentTurn(), s.clk.Now())
		s.rt.Emit(tablestate.Event{
			Channel: ch.ID, Kind: tablestate.EventRoundStarted, At: s.clk.Now(),
			Payload: tablestate.RoundStartedPayload{
				Mode: ch.Mode, Community: ch.CommunityCards, Pot: ch.Pot,
				CurrentBet: ch.CurrentBetToMatch, ActionEndsAt: s.clk.Now().Add(turnDuration),
			},
		})
		mgr.ArmTurn(turnDuration)
		return nil
	})
}

// act runs an in-round command (hit/stand/double/split/insurance for
// blackjack; fold/check/call/raise for poker) through the shared dispatch
// loop, synchronously driving any AI seats now on the clock (spec §4.8:
// "the AI Actor answers before the command loop yields"), then settling
// the round in place once it reaches showdown.
func (s *server) act(channelID, subscriberID string, cmd tablestate.Command) error {
	var analyticsMode tablestate.Mode
	var settled bool

	err := s.rt.Dispatch(context.Background(), subscriberID, channelID, cmd.Action, func(ch *tablestate.Channel) error {
		ops := s.opsFor(ch.Mode)
		analyticsMode = ch.Mode

		over, err := ops.Act(ch, cmd, s.debitFor(ch))
		if err != nil {
			return err
		}

		// Run out AI seats until a human is back on the clock or the
		// round settles; bounded by seat count so a misbehaving policy
		// can never spin the channel lock forever.
		for i := 0; !over && i < len(ch.Seats)+4; i++ {
			login := ch.CurrentTurn()
			if login == "" {
				break
			}
			seat := ch.SeatOf(login)
			if seat == nil || !seat.IsAI {
				break
			}

			s.randMu.Lock()
			aiCmd := aiPolicyFor(ch.Mode)(ch, login, s.aiRand)
			s.randMu.Unlock()

			over, err = ops.Act(ch, aiCmd, s.debitFor(ch))
			if err != nil {
				return err
			}
		}

		mgr := s.managerFor(ch)
		if over {
			s.settleRoundLocked(ch, ops, mgr)
			settled = true
		} else {
			mgr.CancelTurn()
			mgr.ArmTurn(s.heur.TurnDuration(ch.CurrentTurn(), s.clk.Now()))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if settled && s.producer != nil {
		evt := analytics.RoundEvent{
			EventID:   analytics.NewEventID(),
			EventType: "hand_settled",
			ChannelID: channelID,
			Mode:      string(analyticsMode),
			Login:     cmd.Login,
			Action:    cmd.Action,
			Timestamp: time.Now(),
		}
		go func() {
			if err := s.producer.Publish(context.Background(), evt); err != nil {
				s.logger.Warn("analytics publish failed", "channel", channelID, "err", err)
			}
		}()
	}
	return nil
}

// settleRoundLocked runs the house's closing auto-play, pays out, records
// heuristics, emits the settled event, and arms the inter-round pause that
// reopens betting automatically (spec §4.3 Timer Phase, review: ArmPhase
// now has a real caller). Must be called with ch's router lock held.
func (s *server) settleRoundLocked(ch *tablestate.Channel, ops tablestate.ModeOps, mgr *turnmanager.Manager) {
	mgr.CancelAll()
	ops.AdvanceDealer(ch)

	preBalances := make(map[string]int64, len(ch.Seats))
	for _, seat := range ch.Seats {
		preBalances[seat.Login] = s.balanceFor(ch, seat.Login)
	}
	payouts := ops.Settle(ch, s.creditFor(ch))
	s.recordHeuristics(ch, payouts, preBalances)

	s.rt.Emit(tablestate.Event{
		Channel: ch.ID, Kind: tablestate.EventSettled, At: s.clk.Now(),
		Payload: tablestate.SettledPayload{Payouts: payouts, Dealer: ch.DealerHand, Community: ch.CommunityCards},
	})

	mgr.ArmPhase(s.cfg.Timers.PhaseTimeout(), func() {
		if err := s.dispatchCommand(ch.ID, ch.ID+":system", tablestate.Command{Action: "openBetting"}); err != nil {
			s.logger.Warn("auto-restart failed", "channel", ch.ID, "err", err)
		}
	})
}

// createChannelRequest is the body of POST /api/channels.
type createChannelRequest struct {
	Mode string `json:"mode"` // "blackjack" | "poker"
}

// handleCreateChannel mints a fresh channel id and registers it with the
// router, idle until the first openBetting/startNow command arrives.
func (s *server) handleCreateChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := tablestate.ModeBlackjack
	if req.Mode == string(tablestate.ModePoker) {
		mode = tablestate.ModePoker
	}

	rng, err := cards.NewRNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rng init failed"})
		return
	}

	channelID := uuid.NewString()
	ch := tablestate.NewChannel(channelID, mode, rng)
	s.rt.Register(ch)

	c.JSON(http.StatusCreated, gin.H{"channel_id": channelID, "mode": string(mode)})
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfg, err := config.Load(os.Getenv("CARDHALL_CONFIG"))
	if err != nil {
		logger.Fatal("config load failed", "err", err)
	}

	srv, err := newServer(logger, cfg)
	if err != nil {
		logger.Fatal("server init failed", "err", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.GET("/ws/:channelId", srv.handleWebSocket)
	r.POST("/api/channels", srv.handleCreateChannel)
	r.POST("/api/tournaments", srv.handleCreateTournament)
	r.POST("/api/tournaments/:id/players", srv.handleAddTournamentPlayer)
	r.POST("/api/tournaments/:id/bracket", srv.handleGenerateBracket)
	r.POST("/api/tournaments/:id/advance", srv.handleAdvanceRound)
	r.POST("/api/tournaments/:id/bind", srv.handleBindTournamentTable)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutting down")
		if srv.producer != nil {
			srv.producer.Close()
		}
		if srv.tournamentDB != nil {
			srv.tournamentDB.Close()
		}
		os.Exit(0)
	}()

	logger.Info("cardhall server starting", "addr", cfg.Server.ListenAddr)
	if err := r.Run(cfg.Server.ListenAddr); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
