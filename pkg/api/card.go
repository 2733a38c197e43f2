package api

type (
	// AgentCard is the discovery document served at /.well-known/agent.json
	AgentCard struct {
		Name           string           `json:"name"`
		Version        string           `json:"version"`
		Description    string           `json:"description"`
		URL            string           `json:"url"`
		Capabilities   CardCapabilities `json:"capabilities"`
		Skills         []Skill          `json:"skills"`
		Authentication CardAuth         `json:"authentication"`
		Extensions     CardExtensions   `json:"extensions"`
	}

	// CardCapabilities flags the interaction modes the agent supports
	CardCapabilities struct {
		Streaming              bool `json:"streaming"`
		PushNotifications      bool `json:"pushNotifications"`
		StateTransitionHistory bool `json:"stateTransitionHistory"`
	}

	// Skill describes one declared capability
	Skill struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}

	// CardAuth lists the accepted authentication schemes
	CardAuth struct {
		Schemes []string `json:"schemes"`
	}

	// CardExtensions carries orchestrator-specific extension flags
	CardExtensions struct {
		HITLEnabled        bool    `json:"hitl_enabled"`
		InterruptSupport   bool    `json:"interrupt_support"`
		MaxAutoApprovalUSD float64 `json:"max_auto_approval_limit"`
	}
)
