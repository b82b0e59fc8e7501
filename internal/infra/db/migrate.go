package db

import (
	"database/sql"
)

// MigrateUp creates the schema. All statements are idempotent so the
// migration can run on every startup.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id                   TEXT PRIMARY KEY,
    quota_claude_monthly INT NOT NULL DEFAULT 3,
    quota_claude_used    INT NOT NULL DEFAULT 0,
    quota_gpt_monthly    INT NOT NULL DEFAULT 2,
    quota_gpt_used       INT NOT NULL DEFAULT 0,
    plan_renews_at       TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS categories (
    id         TEXT PRIMARY KEY,
    slug       TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    image_path TEXT NOT NULL DEFAULT ''
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                   TEXT PRIMARY KEY,
    source               TEXT NOT NULL DEFAULT '',
    source_name          TEXT NOT NULL DEFAULT '',
    url                  TEXT NOT NULL,
    url_normalized       TEXT NOT NULL,
    title                TEXT NOT NULL,
    summary              TEXT NOT NULL DEFAULT '',
    topics               JSONB,
    content_text         TEXT NOT NULL DEFAULT '',
    content_extracted_at TIMESTAMPTZ,
    content_extractor    TEXT NOT NULL DEFAULT '',
    image_url            TEXT NOT NULL DEFAULT '',
    generation_count     INT NOT NULL DEFAULT 0,
    published_at         TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at           TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS article_categories (
    id          TEXT PRIMARY KEY,
    article_id  TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    UNIQUE (article_id, category_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS generations (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES users(id),
    article_id      TEXT REFERENCES articles(id),
    model           TEXT NOT NULL,
    prompt          TEXT NOT NULL DEFAULT '',
    draft_text      TEXT NOT NULL,
    persona         TEXT NOT NULL DEFAULT '',
    tone            TEXT NOT NULL DEFAULT '',
    score           INT NOT NULL DEFAULT 0,
    score_breakdown JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at      TIMESTAMPTZ
)`); err != nil {
		return err
	}

	indexes := []string{
		// Deduplication key. Partial so soft-deleted rows never block a
		// re-ingest of the same URL.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_url_normalized
    ON articles(url_normalized) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_generation_count ON articles(generation_count DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_article_categories_category ON article_categories(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_article_categories_article ON article_categories(article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_user_created ON generations(user_id, created_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// pg_trgm speeds up the ILIKE search path. Both statements fail on
	// instances without the extension or superuser rights, so errors
	// are ignored and search falls back to sequential scans.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	searchIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_title_gin ON articles USING gin(title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_summary_gin ON articles USING gin(summary gin_trgm_ops)`,
	}
	for _, idx := range searchIndexes {
		_, _ = db.Exec(idx)
	}

	return nil
}

// MigrateDown drops the schema in reverse dependency order.
// Use with caution: this deletes all data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS generations CASCADE`,
		`DROP TABLE IF EXISTS article_categories CASCADE`,
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS categories CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
