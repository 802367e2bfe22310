package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/triggergate/dispatch"
	"github.com/kandev/agentgate/pkg/triggergate/trigger"
)

// agentStatusResponse is the wire shape for GET /agents/:id.
type agentStatusResponse struct {
	AgentID             string  `json:"agent_id"`
	Balance             float64 `json:"balance"`
	ComputeHours        float64 `json:"compute_hours"`
	IsActive            bool    `json:"is_active"`
	TasksCompleted      int     `json:"tasks_completed"`
	TasksFailed         int     `json:"tasks_failed"`
	CurrentCycle        int     `json:"current_cycle"`
	TotalEarnings       float64 `json:"total_earnings"`
	TotalExpenses       float64 `json:"total_expenses"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
}

func (s *server) listAgents(c *gin.Context) {
	ids := s.runner.List()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

func (s *server) getAgentStatus(c *gin.Context) {
	id := agentrt.AgentID(c.Param("id"))
	handle, ok := s.runner.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}

	cmd, slot := agentrt.GetStatusCommand()
	select {
	case handle.Commands <- cmd:
	case <-c.Request.Context().Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request cancelled"})
		return
	case <-time.After(5 * time.Second):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "agent did not respond"})
		return
	}

	select {
	case reply := <-slot:
		st := reply.State
		c.JSON(http.StatusOK, agentStatusResponse{
			AgentID:             string(id),
			Balance:             st.Balance,
			ComputeHours:        st.ComputeHours,
			IsActive:            st.IsActive,
			TasksCompleted:      st.TasksCompleted,
			TasksFailed:         st.TasksFailed,
			CurrentCycle:        st.CurrentCycle,
			TotalEarnings:       st.TotalEarnings,
			TotalExpenses:       st.TotalExpenses,
			ConsecutiveFailures: st.ConsecutiveFailures,
		})
	case <-time.After(5 * time.Second):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "agent did not reply"})
	}
}

func (s *server) stopAgent(c *gin.Context) {
	id := agentrt.AgentID(c.Param("id"))
	handle, ok := s.runner.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}
	select {
	case handle.Commands <- agentrt.StopCommand():
		c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
	case <-time.After(5 * time.Second):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "agent mailbox full"})
	}
}

// triggerWebhookRequest is the demo payload carrying an external comment to
// be parsed, authorized, and dispatched: the host-side wiring between
// Core B (Trigger Gate) and Core A (Agent Runtime) described in spec §2.
type triggerWebhookRequest struct {
	Repository string           `json:"repository"`
	Kind       string           `json:"kind"` // "issue" or "pr"
	Body       string           `json:"body"`
	Author     string           `json:"author"`
	Comments   []webhookComment `json:"comments"`
}

type webhookComment struct {
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *server) handleTriggerWebhook(c *gin.Context) {
	var req triggerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comments := make([]trigger.Comment, 0, len(req.Comments))
	for _, cm := range req.Comments {
		comments = append(comments, trigger.Comment{Body: cm.Body, Author: cm.Author, CreatedAt: cm.CreatedAt})
	}

	info, ok := s.security.CheckTriggerComment(req.Body, req.Author, comments)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}

	kind := dispatch.ItemIssue
	if req.Kind == "pr" {
		kind = dispatch.ItemPR
	}
	qualified := dispatch.QualifiedAction(info.Action, kind)

	allowed, reason := s.security.PerformFullSecurityCheck(info.Username, qualified, req.Repository)
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"matched": true, "allowed": false, "reason": reason})
		return
	}

	envelope, err := s.dispatcher.Resolve(info, kind, req.Repository, "")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"matched": true, "allowed": true, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matched": true, "allowed": true, "dispatch": envelope})
}
