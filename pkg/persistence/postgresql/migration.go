package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow instances with optimistic-concurrency revision
			CREATE TABLE workflow_instances (
				id VARCHAR(255) PRIMARY KEY,
				workflow_type VARCHAR(100) NOT NULL,
				version INTEGER NOT NULL,
				current_state VARCHAR(100) NOT NULL,
				context JSONB NOT NULL,
				history JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				revision BIGINT NOT NULL DEFAULT 1
			);

			CREATE INDEX idx_instances_workflow_type ON workflow_instances(workflow_type);
			CREATE INDEX idx_instances_current_state ON workflow_instances(current_state);

			-- Append-only audit trail of committed transitions
			CREATE TABLE transition_audit (
				id BIGSERIAL PRIMARY KEY,
				instance_id VARCHAR(255) NOT NULL,
				success BOOLEAN NOT NULL,
				previous_state VARCHAR(100) NOT NULL,
				current_state VARCHAR(100) NOT NULL,
				transition_event VARCHAR(100) NOT NULL,
				error TEXT,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
				recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_audit_instance_id ON transition_audit(instance_id);
			CREATE INDEX idx_audit_occurred_at ON transition_audit(occurred_at);
		`,
	}
}
