// Package webserver exposes a read-only status endpoint over the mirror.
package webserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stake-plus/solana-gov-watch/src/store"
)

// Server serves cached snapshots as JSON. It never touches the chain.
type Server struct {
	store *store.Store
	srv   *http.Server
}

// New builds the server on the given listen address.
func New(addr string, st *store.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	s := &Server{
		store: st,
		srv:   &http.Server{Addr: addr, Handler: r},
	}

	r.GET("/healthz", s.healthz)
	v1 := r.Group("/v1")
	{
		v1.GET("/governances", s.listGovernances)
		v1.GET("/proposals", s.listProposals)
	}

	return s
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("webserver shutdown: %v", err)
		}
	}()

	log.Printf("status webserver listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("webserver: %v", err)
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type governanceView struct {
	Key            string `json:"key"`
	Realm          string `json:"realm"`
	ProposalsCount uint32 `json:"proposals_count"`
	MaxVotingTime  uint32 `json:"max_voting_time"`
	ThresholdPct   uint8  `json:"vote_threshold_percentage"`
}

func (s *Server) listGovernances(c *gin.Context) {
	governances, err := s.store.ListGovernances()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list governances"})
		return
	}
	out := make([]governanceView, 0, len(governances))
	for _, g := range governances {
		out = append(out, governanceView{
			Key:            g.Key.String(),
			Realm:          g.Governance.Realm.String(),
			ProposalsCount: g.Governance.ProposalsCount,
			MaxVotingTime:  g.Governance.Config.MaxVotingTime,
			ThresholdPct:   g.Governance.Config.VoteThresholdPercentage.Percentage,
		})
	}
	c.JSON(http.StatusOK, out)
}

type proposalView struct {
	Key        string `json:"key"`
	Governance string `json:"governance"`
	State      string `json:"state"`
	Name       string `json:"name"`
	YesVotes   uint64 `json:"yes_votes"`
	NoVotes    uint64 `json:"no_votes"`
	VotingAt   *int64 `json:"voting_at,omitempty"`
}

func (s *Server) listProposals(c *gin.Context) {
	proposals, err := s.store.ListProposals()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list proposals"})
		return
	}
	out := make([]proposalView, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, proposalView{
			Key:        p.Key.String(),
			Governance: p.Proposal.Governance.String(),
			State:      p.Proposal.State.String(),
			Name:       p.Proposal.Name,
			YesVotes:   p.Proposal.YesVotesCount,
			NoVotes:    p.Proposal.NoVotesCount,
			VotingAt:   p.Proposal.VotingAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
