package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflow_templates table
			CREATE TABLE workflow_templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				template_type VARCHAR(50) NOT NULL CHECK (template_type IN ('onboarding', 'offboarding', 'promotion', 'custom')),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				version INT NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT true,
				owner VARCHAR(255) NOT NULL DEFAULT '',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_templates_type ON workflow_templates(template_type);
			CREATE INDEX idx_workflow_templates_owner ON workflow_templates(owner);
			CREATE INDEX idx_workflow_templates_created_at ON workflow_templates(created_at);
		`,
		2: `
			-- Track who saved last
			ALTER TABLE workflow_templates ADD COLUMN updated_by VARCHAR(255) NOT NULL DEFAULT '';

			CREATE INDEX idx_workflow_templates_updated_at ON workflow_templates(updated_at);
		`,
	}
}
