package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	outreachdomain "github.com/smallbiznis/outreach/internal/outreach/domain"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
)

type dispatchRequest struct {
	IDs          []int64 `json:"ids"`
	Subject      string  `json:"subject"`
	HTMLTemplate string  `json:"htmlTemplate"`
}

type previewRequest struct {
	ID int64 `json:"id"`
}

type creditsResponse struct {
	Email     string         `json:"email"`
	FirstName *string        `json:"first_name"`
	Credits   creditsPayload `json:"credits"`
}

type creditsPayload struct {
	Total     int64           `json:"total"`
	Earned    int64           `json:"earned"`
	Referrals int64           `json:"referrals"`
	Breakdown creditBreakdown `json:"breakdown"`
}

type creditBreakdown struct {
	SignupBonus   int64 `json:"signup_bonus"`
	ReferralBonus int64 `json:"referral_bonus"`
	GiftBonus     int64 `json:"gift_bonus"`
}

func (s *Server) SendInvite(c *gin.Context) {
	s.dispatch(c, signupdomain.StageInvite)
}

func (s *Server) SendFollowUp(c *gin.Context) {
	s.dispatch(c, signupdomain.StageFollowUp)
}

func (s *Server) dispatch(c *gin.Context, stage signupdomain.Stage) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("ids", "invalid", "ids must be a list of integers"))
		return
	}

	in := outreachdomain.DispatchRequest{
		IDs:          req.IDs,
		Stage:        stage,
		Subject:      req.Subject,
		HTMLTemplate: req.HTMLTemplate,
	}

	report, err := s.outreachSvc.Dispatch(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("batch_id", report.BatchID)
	c.JSON(http.StatusOK, report)
}

func (s *Server) PreviewInvite(c *gin.Context) {
	s.preview(c, signupdomain.StageInvite)
}

func (s *Server) PreviewFollowUp(c *gin.Context) {
	s.preview(c, signupdomain.StageFollowUp)
}

func (s *Server) preview(c *gin.Context, stage signupdomain.Stage) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		AbortWithError(c, newValidationError("id", "required", "id is required"))
		return
	}

	preview, err := s.outreachSvc.Preview(c.Request.Context(), req.ID, stage)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

func (s *Server) GetCredits(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		AbortWithError(c, newValidationError("email", "required", "email query parameter is required"))
		return
	}

	account, err := s.creditSvc.Lookup(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var firstName *string
	if account.FirstName != "" {
		firstName = &account.FirstName
	}
	credits := account.Credits
	c.JSON(http.StatusOK, creditsResponse{
		Email:     account.Email,
		FirstName: firstName,
		Credits: creditsPayload{
			Total:     credits.Total,
			Earned:    credits.Earned,
			Referrals: credits.ReferralCount,
			Breakdown: creditBreakdown{
				SignupBonus:   credits.SignupBonus,
				ReferralBonus: credits.ReferralBonus,
				GiftBonus:     credits.GiftBonus,
			},
		},
	})
}

func (s *Server) GetAnalysis(c *gin.Context) {
	projection, err := s.forecastSvc.Analyze(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection)
}
