package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// answerRequest is the POST /api/answers body.
type answerRequest struct {
	Query     string            `json:"query"`
	Documents []documentPayload `json:"documents"`
	Challenge *challengePayload `json:"challenge,omitempty"`
}

type documentPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	PublishedAt string `json:"published_at"`
}

type challengePayload struct {
	Token string `json:"token"`
	TS    int64  `json:"ts"`
}

// feedbackRequest is the POST /api/feedback body.
type feedbackRequest struct {
	Query   string `json:"query"`
	Helpful *bool  `json:"helpful"`
}

// logRequest is the POST /api/log body, sent when the visitor's browser
// answered from its own cache.
type logRequest struct {
	Query        string `json:"query"`
	ResultsCount int    `json:"results_count"`
}

func (d documentPayload) toDomain() domain.CandidateDocument {
	return domain.CandidateDocument{
		ID:          d.ID,
		Title:       d.Title,
		URL:         d.URL,
		Excerpt:     d.Excerpt,
		Content:     d.Content,
		Type:        d.Type,
		PublishedAt: domain.ParsePublishedAt(d.PublishedAt),
	}
}

func (s *Server) handleAnswer(c *gin.Context) {
	var body answerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Debug("Rejected malformed answer request: %v", err)
		abortInvalid(c)
		return
	}

	req := driving.AnswerRequest{
		Query:     body.Query,
		Documents: make([]domain.CandidateDocument, len(body.Documents)),
		ClientIP:  clientIP(c.Request, s.trustProxy()),
		Headers:   c.Request.Header,
	}
	for i, d := range body.Documents {
		req.Documents[i] = d.toDomain()
	}
	if body.Challenge != nil {
		req.ChallengeToken = body.Challenge.Token
		req.ChallengeTS = body.Challenge.TS
	}

	outcome := s.answers.Answer(c.Request.Context(), req)
	if outcome.Code.Public() == domain.CodeRateLimited {
		c.Header("Retry-After", "60")
	}
	c.JSON(statusFor(outcome), driving.NewAnswerResponse(outcome))
}

func (s *Server) handleChallenge(c *gin.Context) {
	token, ts := s.answers.IssueChallenge()
	if token == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"token": token, "ts": ts})
}

func (s *Server) handleFeedback(c *gin.Context) {
	var body feedbackRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Helpful == nil {
		abortInvalid(c)
		return
	}
	err := s.answers.RecordFeedback(c.Request.Context(), clientIP(c.Request, s.trustProxy()), body.Query, *body.Helpful)
	respondRecorded(c, err)
}

func (s *Server) handleLog(c *gin.Context) {
	var body logRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.ResultsCount < 0 {
		abortInvalid(c)
		return
	}
	err := s.answers.RecordClientEvent(c.Request.Context(), clientIP(c.Request, s.trustProxy()), body.Query, body.ResultsCount)
	respondRecorded(c, err)
}

// respondRecorded renders the result of a light-limited endpoint.
func respondRecorded(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, domain.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, driving.NewAnswerResponse(domain.FatalOutcome(domain.CodeRateLimited, "")))
	case errors.Is(err, domain.ErrInvalidQuery):
		abortInvalid(c)
	default:
		logger.Warn("Failed to record event: %v", err)
		c.JSON(http.StatusInternalServerError, driving.NewAnswerResponse(domain.FatalOutcome(domain.CodeServiceError, "")))
	}
}

func abortInvalid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, driving.NewAnswerResponse(domain.FatalOutcome(domain.CodeInvalidQuery, "")))
}
