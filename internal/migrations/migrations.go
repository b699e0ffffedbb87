package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	Version    int
	Statements []string
}

// list is the ordered schema history. Versions are applied once each and
// recorded in schema_migrations; never edit an applied version, append a
// new one instead.
var list = []migration{
	{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS media (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL CHECK (type IN ('image', 'video', 'audio')),
				filename TEXT NOT NULL,
				prompt TEXT,
				model TEXT,
				user_id TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				file_size INTEGER NOT NULL,
				mime_type TEXT NOT NULL,
				details TEXT,
				ip_address TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_media_user_created_at ON media(user_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_media_type_created_at ON media(type, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_media_ip_address ON media(ip_address, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS video_jobs (
				id TEXT PRIMARY KEY,
				job_id TEXT,
				operation_id TEXT,
				user_id TEXT NOT NULL,
				prompt TEXT,
				model TEXT,
				mode TEXT,
				status TEXT NOT NULL DEFAULT 'pending',
				progress INTEGER NOT NULL DEFAULT 0,
				error TEXT,
				details TEXT,
				video_url TEXT,
				media_id TEXT,
				ip_address TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_video_jobs_user_created_at ON video_jobs(user_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_video_jobs_job_id ON video_jobs(job_id)`,
			`CREATE INDEX IF NOT EXISTS idx_video_jobs_operation_id ON video_jobs(operation_id)`,
		},
	},
	{
		Version: 2,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				is_admin INTEGER NOT NULL DEFAULT 0,
				require_password_reset INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				last_login_at TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
			`CREATE TABLE IF NOT EXISTS user_admins (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				admin_id TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (admin_id) REFERENCES users(id) ON DELETE CASCADE,
				UNIQUE(user_id, admin_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_admins_user ON user_admins(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_user_admins_admin ON user_admins(admin_id)`,
			`CREATE TABLE IF NOT EXISTS user_quotas (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				generation_type TEXT NOT NULL CHECK (generation_type IN ('image', 'video', 'text', 'speech')),
				quota_type TEXT NOT NULL CHECK (quota_type IN ('limited', 'unlimited')),
				quota_limit INTEGER,
				quota_used INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				UNIQUE(user_id, generation_type)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_quotas_user_id ON user_quotas(user_id)`,
			`CREATE TABLE IF NOT EXISTS user_sessions (
				token TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL,
				last_activity_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_sessions_user_id ON user_sessions(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_user_sessions_expires ON user_sessions(expires_at)`,
			`CREATE TABLE IF NOT EXISTS user_tags (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				tag TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				UNIQUE(user_id, tag)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_tags_tag ON user_tags(tag)`,
		},
	},
	{
		Version: 3,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS prompt_templates (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				media_type TEXT NOT NULL CHECK (media_type IN ('text', 'image', 'video')),
				template_text TEXT NOT NULL,
				variables TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				UNIQUE(user_id, name, media_type)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_prompt_templates_user_id ON prompt_templates(user_id)`,
			`CREATE TABLE IF NOT EXISTS system_prompts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				media_type TEXT NOT NULL CHECK (media_type IN ('text', 'image', 'video')),
				prompt_text TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				UNIQUE(user_id, name, media_type)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_system_prompts_user_id ON system_prompts(user_id)`,
			`CREATE TABLE IF NOT EXISTS text_generations (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				mode TEXT NOT NULL CHECK (mode IN ('chat', 'single')),
				system_prompt TEXT,
				system_prompt_id TEXT,
				user_message TEXT,
				template_id TEXT,
				model_response TEXT,
				model TEXT,
				ip_address TEXT,
				created_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (system_prompt_id) REFERENCES system_prompts(id) ON DELETE SET NULL,
				FOREIGN KEY (template_id) REFERENCES prompt_templates(id) ON DELETE SET NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_text_generations_user_id ON text_generations(user_id, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS chat_sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT,
				system_prompt TEXT,
				system_prompt_id TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (system_prompt_id) REFERENCES system_prompts(id) ON DELETE SET NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user_id ON chat_sessions(user_id, updated_at DESC)`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL,
				role TEXT NOT NULL CHECK (role IN ('user', 'model')),
				content TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chat_messages_session_id ON chat_messages(session_id, created_at ASC)`,
		},
	},
	{
		Version: 4,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS server_metric_samples (
				id TEXT PRIMARY KEY,
				captured_at TIMESTAMP NOT NULL,
				process_memory_bytes INTEGER NOT NULL,
				system_memory_total_bytes INTEGER NOT NULL,
				system_memory_used_bytes INTEGER NOT NULL,
				disk_total_bytes INTEGER NOT NULL,
				disk_used_bytes INTEGER NOT NULL,
				process_cpu_load REAL NOT NULL,
				system_cpu_load REAL NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_metric_samples_captured ON server_metric_samples(captured_at DESC)`,
		},
	},
}

// Apply runs every migration version not yet recorded in schema_migrations.
func Apply(db *sqlx.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	applied := map[int]bool{}
	versions := []int{}
	if err := db.Select(&versions, `SELECT version FROM schema_migrations`); err != nil {
		return err
	}
	for _, v := range versions {
		applied[v] = true
	}
	for _, mig := range list {
		if applied[mig.Version] {
			continue
		}
		tx, err := db.Beginx()
		if err != nil {
			return err
		}
		for _, stmt := range mig.Statements {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %d: %w", mig.Version, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, mig.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", mig.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
