package config

// Default returns the built-in configuration. Load layers the config file and
// environment on top of it.
func Default() *Config {
	return &Config{
		Triggers: DefaultTriggers(),
		SeverityDefaults: map[string]string{
			"BigTechThreat":         "Orange",
			"RegulatoryChange":      "Yellow",
			"CompetitiveThreat":     "Yellow",
			"EconomicDownturn":      "Orange",
			"SecurityBreach":        "Red",
			"CustomerConcentration": "Orange",
			"TechnologyDisruption":  "Yellow",
			"OperationalRisk":       "Yellow",
		},
		Stakeholders: []StakeholderConfig{
			{Name: "Chief Executive Officer", Role: "CEO", Contacts: map[string]string{"email": "ceo@company.com", "sms": "+5511999990001"}},
			{Name: "Chief Technology Officer", Role: "CTO", Contacts: map[string]string{"email": "cto@company.com", "sms": "+5511999990002"}},
			{Name: "Chief Financial Officer", Role: "CFO", Contacts: map[string]string{"email": "cfo@company.com"}},
			{Name: "Legal Counsel", Role: "LEGAL", Contacts: map[string]string{"email": "legal@company.com"}},
			{Name: "Head of Sales", Role: "SALES", Contacts: map[string]string{"email": "sales@company.com"},
				Thresholds: map[string]string{"CompetitiveThreat": "Orange"}},
			{Name: "Head of Marketing", Role: "MARKETING", Contacts: map[string]string{"email": "marketing@company.com"},
				Thresholds: map[string]string{"CompetitiveThreat": "Orange"}},
			{Name: "Head of Operations", Role: "OPERATIONS", Contacts: map[string]string{"email": "ops@company.com"}},
			{Name: "Board of Directors", Role: "BOARD", Contacts: map[string]string{"email": "board@company.com"}},
		},
		StakeholderRouting: RoutingConfig{
			Categories: map[string][]string{
				"BigTechThreat":         {"CEO", "CTO", "SALES"},
				"RegulatoryChange":      {"CEO", "LEGAL", "OPERATIONS"},
				"CompetitiveThreat":     {"CEO", "SALES", "MARKETING"},
				"EconomicDownturn":      {"CEO", "CFO"},
				"TechnologyDisruption":  {"CTO"},
				"CustomerConcentration": {"CEO", "SALES"},
				"SecurityBreach":        {"CTO", "LEGAL", "OPERATIONS"},
				"OperationalRisk":       {"OPERATIONS"},
			},
			TopExecutive: "CEO",
			Oversight:    "BOARD",
		},
		MonitoringIntervals: map[string]int{
			TierCritical: 60,
			TierHigh:     300,
			TierMedium:   900,
			TierLow:      3600,
		},
		EscalationInterval:    300,
		RedSLASeconds:         7200,
		RestartBackoffSeconds: 60,
		ShutdownGraceSeconds:  10,
		Channels: []ChannelConfig{
			{Name: "log", Type: "log", Enabled: true, TimeoutSeconds: 5},
		},
		Sources: []SourceConfig{
			{Name: "manual", Type: "manual", Tier: TierCritical, Enabled: true},
		},
		Worker: WorkerConfig{
			Count:      4,
			BufferSize: 100,
		},
		Snapshot: SnapshotConfig{
			Path:            "data/alerts.json",
			DBPath:          "data/alerts.db",
			IntervalSeconds: 300,

			SeenRetentionSeconds: 30 * 24 * 3600,
		},
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultTriggers returns the built-in trigger set in evaluation order.
func DefaultTriggers() []TriggerConfig {
	content := []string{"content"}
	return []TriggerConfig{
		{
			Name:     "big_tech_announces_brazil_investment",
			Category: "BigTechThreat",
			Groups: []KeywordGroup{
				{Fields: []string{"title"}, Keywords: []string{"Google", "Microsoft", "Amazon", "Meta", "Apple"}, CaseSensitive: true},
				{Fields: []string{"title", "content"}, Keywords: []string{"Brazil", "educação"}, CaseSensitive: true},
				{Fields: content, Keywords: []string{"investment", "partnership"}},
			},
		},
		{
			Name:     "new_regulatory_proposal_affecting_edtech",
			Category: "RegulatoryChange",
			Groups: []KeywordGroup{
				{Fields: content, Keywords: []string{"lei", "decreto"}},
				{Fields: content, Keywords: []string{"edtech", "educação"}},
			},
		},
		{
			Name:     "major_competitor_raises_funding_50m_plus",
			Category: "CompetitiveThreat",
			Groups: []KeywordGroup{
				{Fields: content, Keywords: []string{"funding", "investment"}},
				{Fields: content, Keywords: []string{"education", "edtech"}},
				{Fields: content, Keywords: []string{"$50M", "$100M", "R$ 250M", "R$ 500M"}, CaseSensitive: true},
			},
		},
		{
			Name:     "security_breach_in_education_sector",
			Category: "SecurityBreach",
			Groups: []KeywordGroup{
				{Keywords: []string{"breach", "vazamento", "ransomware"}},
				{Keywords: []string{"education", "educação", "school", "escola", "edtech"}},
			},
		},
		{
			Name:     "economic_indicators_suggest_budget_cuts",
			Category: "EconomicDownturn",
			Groups: []KeywordGroup{
				{Keywords: []string{"budget cut", "corte", "contingenciamento", "recession"}},
				{Keywords: []string{"education", "educação", "government", "governo"}},
			},
		},
		{
			Name:     "technology_paradigm_shift_detected",
			Category: "TechnologyDisruption",
			Groups: []KeywordGroup{
				{Keywords: []string{"generative ai", "ia generativa", "llm", "chatgpt"}},
				{Keywords: []string{"education", "educação", "classroom", "sala de aula"}},
			},
		},
	}
}
