package postgresql

// migrations returns the versioned schema for the PostgreSQL backend.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				deployed BOOLEAN NOT NULL DEFAULT FALSE,
				content JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_user_id ON workflows (user_id);
			CREATE INDEX IF NOT EXISTS idx_workflows_deployed ON workflows (deployed) WHERE deployed;

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE,
				trigger_input JSONB,
				result JSONB,
				execution_log JSONB NOT NULL DEFAULT '[]'::jsonb,
				error TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow_id ON workflow_executions (workflow_id);

			CREATE TABLE IF NOT EXISTS credentials (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				type TEXT NOT NULL,
				data JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, provider)
			);

			CREATE INDEX IF NOT EXISTS idx_credentials_user_id ON credentials (user_id);
		`,
	}
}
