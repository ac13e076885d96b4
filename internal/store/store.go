// Package store persists sources, articles and briefings in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dailybrief/internal/model"
)

type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the SQLite database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT 'en',
			enabled INTEGER NOT NULL DEFAULT 1,
			weight REAL NOT NULL DEFAULT 1.0,
			last_fetched DATETIME,
			error_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			source_id INTEGER,
			source_name TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			published_at DATETIME,
			fetched_at DATETIME NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			topics TEXT NOT NULL DEFAULT '',
			source_weight REAL NOT NULL DEFAULT 1.0,
			score REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS briefings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			type TEXT NOT NULL,
			article_ids TEXT NOT NULL DEFAULT '',
			script TEXT NOT NULL DEFAULT '',
			audio_path TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'generating',
			generated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles(fetched_at);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_score ON articles(score DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_briefings_date ON briefings(date, type);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// AddSource inserts a source or updates an existing one with the same URL.
// Returns the source id.
func (s *Store) AddSource(ctx context.Context, src model.ContentSource) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources(name, url, category, language, enabled, weight)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(url) DO UPDATE SET
			name=excluded.name,
			category=excluded.category,
			language=excluded.language,
			enabled=excluded.enabled,
			weight=excluded.weight
	`, src.Name, src.URL, src.Category, src.Language, boolInt(src.Enabled), src.Weight)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM sources WHERE url=?`, src.URL).Scan(&id)
	return id, err
}

func (s *Store) GetSources(ctx context.Context, enabledOnly bool) ([]model.ContentSource, error) {
	query := `SELECT id, name, url, category, language, enabled, weight, last_fetched, error_count FROM sources`
	if enabledOnly {
		query += ` WHERE enabled=1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ContentSource
	for rows.Next() {
		var src model.ContentSource
		var enabled int
		var lastFetched sql.NullTime
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Category, &src.Language,
			&enabled, &src.Weight, &lastFetched, &src.ErrorCount); err != nil {
			return nil, err
		}
		src.Enabled = enabled == 1
		if lastFetched.Valid {
			t := lastFetched.Time
			src.LastFetched = &t
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpdateSourceFetchTime stamps a successful fetch and clears the consecutive
// error counter.
func (s *Store) UpdateSourceFetchTime(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_fetched=?, error_count=0 WHERE id=?`, time.Now(), id)
	return err
}

func (s *Store) IncrementSourceError(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET error_count=error_count+1 WHERE id=?`, id)
	return err
}

// UpsertArticle writes an article keyed by its URL-derived id. Re-fetching
// the same URL overwrites the stored row instead of duplicating it.
func (s *Store) UpsertArticle(ctx context.Context, a model.Article) error {
	var published interface{}
	if a.PublishedAt != nil {
		published = *a.PublishedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles(id, source_id, source_name, title, summary, content, url,
			author, published_at, fetched_at, language, topics, source_weight, score)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			source_id=excluded.source_id,
			source_name=excluded.source_name,
			title=excluded.title,
			summary=excluded.summary,
			content=excluded.content,
			url=excluded.url,
			author=excluded.author,
			published_at=excluded.published_at,
			fetched_at=excluded.fetched_at,
			language=excluded.language,
			topics=excluded.topics,
			source_weight=excluded.source_weight,
			score=excluded.score
	`, a.ID, nullInt(a.SourceID), a.SourceName, a.Title, a.Summary, a.Content, a.URL,
		a.Author, published, a.FetchedAt, a.Language, strings.Join(a.Topics, ","), a.SourceWeight, a.Score)
	return err
}

func (s *Store) GetArticles(ctx context.Context, limit int, minScore float64) ([]model.Article, error) {
	query := `SELECT id, source_id, source_name, title, summary, content, url, author,
		published_at, fetched_at, language, topics, source_weight, score
		FROM articles WHERE score >= ? ORDER BY score DESC, fetched_at DESC`
	args := []interface{}{minScore}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		var a model.Article
		var sourceID sql.NullInt64
		var published sql.NullTime
		var topics string
		if err := rows.Scan(&a.ID, &sourceID, &a.SourceName, &a.Title, &a.Summary, &a.Content,
			&a.URL, &a.Author, &published, &a.FetchedAt, &a.Language, &topics,
			&a.SourceWeight, &a.Score); err != nil {
			return nil, err
		}
		if sourceID.Valid {
			a.SourceID = sourceID.Int64
		}
		if published.Valid {
			t := published.Time
			a.PublishedAt = &t
		}
		if topics != "" {
			a.Topics = strings.Split(topics, ",")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}

// CleanupOldArticles deletes articles fetched more than the given number of
// days ago. Returns the number of rows removed.
func (s *Store) CleanupOldArticles(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SaveBriefing(ctx context.Context, b *model.Briefing) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO briefings(date, type, article_ids, script, audio_path, duration, status, generated_at)
		VALUES(?,?,?,?,?,?,?,?)
	`, b.Date, b.Type, strings.Join(b.ArticleIDs, ","), b.Script, b.AudioPath,
		b.Duration, b.Status, b.GeneratedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

func (s *Store) GetBriefing(ctx context.Context, date, briefingType string) (*model.Briefing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, type, article_ids, script, audio_path, duration, status, generated_at
		FROM briefings WHERE date=? AND type=? ORDER BY id DESC LIMIT 1
	`, date, briefingType)

	var b model.Briefing
	var ids string
	err := row.Scan(&b.ID, &b.Date, &b.Type, &ids, &b.Script, &b.AudioPath,
		&b.Duration, &b.Status, &b.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ids != "" {
		b.ArticleIDs = strings.Split(ids, ",")
	}
	return &b, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
