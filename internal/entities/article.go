package entities

// LinkStatus records whether a related pack existed before the article was saved.
type LinkStatus string

const (
	LinkStatusExisting LinkStatus = "existing"
	LinkStatusCreated  LinkStatus = "created"
)

// Article is a generated or imported reading text.
type Article struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	BodySource            string    `json:"body_source"`
	BodyTranslation       string    `json:"body_translation"`
	Notes                 string    `json:"notes"`
	SourceURL             string    `json:"source_url,omitempty"`
	LLMModel              string    `json:"llm_model"`
	LLMParams             string    `json:"llm_params"`
	GenerationCategory    string    `json:"generation_category"`
	CreatedAt             Timestamp `json:"created_at"`
	UpdatedAt             Timestamp `json:"updated_at"`
	GenerationStartedAt   Timestamp `json:"generation_started_at"`
	GenerationCompletedAt Timestamp `json:"generation_completed_at"`
	GenerationDurationMs  Count     `json:"generation_duration_ms"`
}

// ArticleLink joins an article to a pack. Links are replaced wholesale on every save.
type ArticleLink struct {
	ArticleID string     `json:"article_id"`
	PackID    string     `json:"pack_id"`
	Label     string     `json:"label"`
	Status    LinkStatus `json:"status"`
	Position  int        `json:"position"`
}

// RelatedPack is the caller-facing link input.
type RelatedPack struct {
	PackID string     `json:"pack_id"`
	Label  string     `json:"label"`
	Status LinkStatus `json:"status"`
}

// ArticleDetail is an article with its related packs.
type ArticleDetail struct {
	Article
	RelatedPacks []RelatedPack `json:"related_packs"`
}
