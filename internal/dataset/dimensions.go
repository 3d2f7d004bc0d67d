package dataset

// Dimension is one categorical axis of the generation parameter space.
type Dimension struct {
	Name   string
	Values []string
}

// Space is an ordered list of dimensions. The order is significant: a
// combination is identified by its tuple of value indices, one per dimension.
type Space []Dimension

// Size returns the size of the full Cartesian product of the space, before
// any filter is applied.
func (s Space) Size() int {
	if len(s) == 0 {
		return 0
	}
	size := 1
	for _, d := range s {
		size *= len(d.Values)
	}
	return size
}

// Names returns the dimension names in space order.
func (s Space) Names() []string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return names
}

// NewsSpace returns the dimension sets used for formal/news Nigerian Pidgin
// generation. 40 x 15 x 12 x 10 x 15 x 5 x 8 = 4,320,000 raw combinations.
func NewsSpace() Space {
	return Space{
		{Name: "topic", Values: []string{
			// Politics & Government
			"national_elections", "local_government", "international_relations",
			"policy_changes", "corruption_investigation", "parliamentary_debate",
			"presidential_address", "state_governance",
			// Economy & Business
			"stock_market", "currency_exchange", "banking_sector",
			"startup_ecosystem", "unemployment_rates", "inflation_impact",
			"trade_agreements", "oil_and_gas",
			// Technology & Innovation
			"fintech_developments", "telecommunications", "cybersecurity",
			"digital_transformation", "artificial_intelligence", "social_media_trends",
			// Education & Academia
			"university_research", "education_reform", "scholarship_programs",
			"academic_excellence", "vocational_training",
			// Health & Science
			"medical_breakthroughs", "public_health_crisis", "pharmaceutical_industry",
			"scientific_research", "healthcare_access",
			// Law & Justice
			"court_proceedings", "legal_reforms", "human_rights", "criminal_justice",
			// Environment & Climate
			"climate_change", "environmental_pollution", "renewable_energy",
			"natural_disasters",
		}},
		{Name: "genre", Values: []string{
			"news_report", "breaking_news", "investigative_article",
			"editorial_opinion", "expert_analysis", "feature_story",
			"press_conference", "public_lecture", "financial_report",
			"research_presentation", "policy_briefing", "market_update",
			"technical_explanation", "formal_announcement", "expert_interview",
		}},
		{Name: "setting", Values: []string{
			"newsroom", "government_house", "corporate_office",
			"university_lecture_hall", "research_institute", "television_studio",
			"radio_station", "conference_center", "stock_exchange", "law_court",
			"hospital_administration", "international_summit",
		}},
		{Name: "tone", Values: []string{
			"authoritative", "analytical", "investigative", "cautiously_optimistic",
			"critically_concerned", "balanced_objective", "urgently_informative",
			"professionally_skeptical", "pedagogically_clear", "diplomatically_firm",
		}},
		{Name: "speaker", Values: []string{
			"news_anchor", "investigative_journalist", "economic_analyst",
			"political_commentator", "university_professor", "medical_expert",
			"legal_analyst", "business_correspondent", "technology_specialist",
			"environmental_scientist", "financial_advisor", "policy_expert",
			"senior_researcher", "industry_consultant", "government_spokesperson",
		}},
		{Name: "time_period", Values: []string{
			"breaking_current", "recent_development", "ongoing_situation",
			"historical_context", "future_projection",
		}},
		{Name: "complexity", Values: []string{
			"executive_summary", "detailed_analysis", "technical_deep_dive",
			"comparative_review", "trend_analysis", "case_study",
			"data_driven_report", "expert_commentary",
		}},
	}
}

// NewsFilter rejects combinations that read as nonsensical when rendered into
// a prompt, e.g. breaking news framed as historical context.
func NewsFilter(c Combination) bool {
	genre := c["genre"]
	timePeriod := c["time_period"]

	if genre == "breaking_news" && (timePeriod == "historical_context" || timePeriod == "future_projection") {
		return false
	}

	if genre == "expert_interview" {
		switch c["setting"] {
		case "stock_exchange", "newsroom":
			return false
		}
	}

	if c["complexity"] == "technical_deep_dive" {
		switch c["speaker"] {
		case "news_anchor", "business_correspondent":
			return false
		}
	}

	return true
}
