// tournament.go wires the Tournament Controller (spec §4.9) into the HTTP
// surface: bracket creation, player registration, bracket generation,
// round advancement, and table binding. tournament.Tournament is its own
// single-writer-safe collaborator; binding a channel to one still goes
// through the router's per-channel lock like every other mutation.
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/internal/tournament"
	"github.com/cardhall/core/pkg/cards"
)

type tournamentBlindRequest struct {
	Small   int64 `json:"small"`
	Big     int64 `json:"big"`
	Seconds int   `json:"seconds"`
}

type createTournamentRequest struct {
	ID                    string                   `json:"id" binding:"required"`
	TableSize             int                      `json:"table_size"`
	StartingChips         int64                    `json:"starting_chips"`
	Blinds                []tournamentBlindRequest `json:"blinds"`
	AdvanceCutoffPerRound []int                    `json:"advance_cutoff_per_round"`
}

// handleCreateTournament creates a tournament in StatusPending, falling
// back to the poker table defaults and the configured blind schedule when
// the request omits them.
func (s *server) handleCreateTournament(c *gin.Context) {
	var req createTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tableSize := req.TableSize
	if tableSize <= 0 {
		tableSize = s.cfg.Poker.SeatCap
	}
	startingChips := req.StartingChips
	if startingChips <= 0 {
		startingChips = s.cfg.Poker.StartingChips
	}

	blinds := make([]tournament.BlindLevel, 0, len(req.Blinds))
	for _, b := range req.Blinds {
		blinds = append(blinds, tournament.BlindLevel{Small: b.Small, Big: b.Big, Duration: time.Duration(b.Seconds) * time.Second})
	}
	if len(blinds) == 0 {
		for _, b := range s.cfg.BlindLevels {
			blinds = append(blinds, tournament.BlindLevel{Small: b.Small, Big: b.Big, Duration: time.Duration(b.Seconds) * time.Second})
		}
	}

	rng, err := cards.NewRNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rng init failed"})
		return
	}

	t := tournament.New(tournament.Config{
		ID: req.ID, TableSize: tableSize, StartingChips: startingChips,
		Blinds: blinds, AdvanceCutoffPerRound: req.AdvanceCutoffPerRound,
	}, s.logger, rng)

	t.OnLevel(func(level int, small, big int64) {
		s.logger.Info("tournament blind level advanced", "tournament", req.ID, "level", level, "small", small, "big", big)
		if s.tournamentDB != nil {
			if err := s.tournamentDB.SaveBlindLevel(req.ID, level, small, big, 0); err != nil {
				s.logger.Warn("blind level persist failed", "tournament", req.ID, "err", err)
			}
		}
	})

	s.mu.Lock()
	s.tournaments[req.ID] = t
	s.mu.Unlock()

	if s.tournamentDB != nil {
		if err := s.tournamentDB.CreateTournament(req.ID, tableSize, startingChips); err != nil {
			s.logger.Warn("tournament persist failed", "tournament", req.ID, "err", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"tournament_id": req.ID})
}

func (s *server) tournamentByID(id string) (*tournament.Tournament, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	return t, ok
}

type addTournamentPlayerRequest struct {
	Login string `json:"login" binding:"required"`
}

// handleAddTournamentPlayer seats a player before the bracket is drawn,
// copying the starting chip count into their tournament stack.
func (s *server) handleAddTournamentPlayer(c *gin.Context) {
	id := c.Param("id")
	t, ok := s.tournamentByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tournament"})
		return
	}
	var req addTournamentPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := t.AddPlayer(req.Login, s.ledger); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if s.tournamentDB != nil {
		if err := s.tournamentDB.AddPlayer(id, req.Login); err != nil {
			s.logger.Warn("tournament player persist failed", "tournament", id, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

type generateBracketRequest struct {
	Round int `json:"round" binding:"required"`
}

// handleGenerateBracket draws the bracket for a round, registers one
// channel per table (each bound to this tournament), seats every assigned
// player, and — on the first round — starts the tournament's blind clock.
func (s *server) handleGenerateBracket(c *gin.Context) {
	id := c.Param("id")
	t, ok := s.tournamentByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tournament"})
		return
	}
	var req generateBracketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wasPending := t.Status() == tournament.StatusPending
	channelIDs := t.GenerateBracket(req.Round)
	for ti, channelID := range channelIDs {
		table := ti + 1
		rng, err := cards.NewRNG()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rng init failed"})
			return
		}
		ch := tablestate.NewChannel(channelID, tablestate.ModePoker, rng)
		ch.Tournament = &tablestate.TournamentBinding{TournamentID: id, Round: req.Round, TableNumber: table}
		for seatNum, login := range t.SeatsForTable(req.Round, table) {
			ch.Seat(login, false)
			if s.tournamentDB != nil {
				if err := s.tournamentDB.SaveBracket(id, req.Round, table, seatNum+1, login); err != nil {
					s.logger.Warn("bracket persist failed", "tournament", id, "err", err)
				}
			}
		}
		s.rt.Register(ch)
	}

	if wasPending {
		if err := t.Start(func(d time.Duration, onFire func()) { s.clk.AfterFunc(d, onFire) }); err != nil {
			s.logger.Warn("tournament blind clock start failed", "tournament", id, "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"channel_ids": channelIDs})
}

// handleAdvanceRound ranks the round's recorded chip counts, cuts the
// field per the tournament's configured advance cutoff, and persists every
// result.
func (s *server) handleAdvanceRound(c *gin.Context) {
	id := c.Param("id")
	t, ok := s.tournamentByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tournament"})
		return
	}
	results := t.AdvanceRound()
	for _, r := range results {
		if s.tournamentDB != nil {
			if err := s.tournamentDB.SaveRoundResult(id, 0, r.Login, r.ChipCount, r.Rank, r.Eliminated); err != nil {
				s.logger.Warn("round result persist failed", "tournament", id, "err", err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type bindTournamentTableRequest struct {
	ChannelID   string `json:"channel_id" binding:"required"`
	Round       int    `json:"round"`
	TableNumber int    `json:"table_number"`
}

// handleBindTournamentTable attaches an already-registered channel to a
// tournament table, routing every subsequent debit/credit on that channel
// to the tournament stack instead of the durable wallet.
func (s *server) handleBindTournamentTable(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.tournamentByID(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tournament"})
		return
	}
	var req bindTournamentTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.rt.Dispatch(c.Request.Context(), "admin:"+id, req.ChannelID, "bindTournamentTable", func(ch *tablestate.Channel) error {
		ch.Tournament = &tablestate.TournamentBinding{TournamentID: id, Round: req.Round, TableNumber: req.TableNumber}
		return nil
	})
	if err != nil {
		status := http.StatusBadRequest
		var ce *cherr.Error
		if errors.As(err, &ce) && ce.Kind == cherr.TournamentMisbound {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bound"})
}
