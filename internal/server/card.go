package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/courierhq/dispatch"
	"github.com/courierhq/dispatch/pkg/api"
)

const agentDescription = "Shipping logistics agent: serviceability " +
	"checks, rate comparison across carriers, and shipment booking " +
	"with human approval for high-value orders"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Version: app.Version,
		Agent:   app.Name,
	})
}

// handleAgentCard serves the discovery document other agents use to find
// this one's skills and interaction modes
func (s *Server) handleAgentCard(c *gin.Context) {
	c.JSON(http.StatusOK, api.AgentCard{
		Name:        app.Name,
		Version:     app.Version,
		Description: agentDescription,
		URL:         s.cfg.AgentURL,
		Capabilities: api.CardCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: true,
		},
		Skills: []api.Skill{
			{
				ID:          "serviceability_check",
				Name:        "Serviceability Check",
				Description: "Check whether a route can be served",
				Tags:        []string{"logistics", "serviceability"},
			},
			{
				ID:          "rate_request",
				Name:        "Rate Comparison",
				Description: "Compare carrier rates for a shipment",
				Tags:        []string{"logistics", "rates"},
			},
			{
				ID:          "book_shipment",
				Name:        "Shipment Booking",
				Description: "Book a shipment and return tracking details",
				Tags:        []string{"logistics", "booking", "approval"},
			},
		},
		Authentication: api.CardAuth{
			Schemes: []string{"none"},
		},
		Extensions: api.CardExtensions{
			HITLEnabled:        true,
			InterruptSupport:   true,
			MaxAutoApprovalUSD: s.cfg.AutoApprovalLimit,
		},
	})
}

func (s *Server) handleProviders(c *gin.Context) {
	ids := s.registry.IDs()
	c.JSON(http.StatusOK, api.ProvidersResponse{
		Providers: ids,
		Count:     len(ids),
	})
}
