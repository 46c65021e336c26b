package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE templates (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				template_type VARCHAR(50) NOT NULL CHECK (template_type IN ('standard', 'flow_based', 'hybrid')),
				is_active BOOLEAN NOT NULL DEFAULT true,
				is_published BOOLEAN NOT NULL DEFAULT false,
				version INTEGER NOT NULL DEFAULT 1,
				icon VARCHAR(255) NOT NULL DEFAULT '',
				color VARCHAR(7) NOT NULL DEFAULT '',
				category VARCHAR(255) NOT NULL DEFAULT '',
				tags JSONB,
				requires_products_services BOOLEAN NOT NULL DEFAULT false,
				auto_create_project BOOLEAN NOT NULL DEFAULT false,
				estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
				client_visible BOOLEAN NOT NULL DEFAULT false,
				client_description TEXT NOT NULL DEFAULT '',
				created_by VARCHAR(255) NOT NULL,
				updated_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_templates_type ON templates(template_type);
			CREATE INDEX idx_templates_created_by ON templates(created_by);
			CREATE INDEX idx_templates_category ON templates(category);
			CREATE INDEX idx_templates_deleted_at ON templates(deleted_at);

			CREATE TABLE template_stages (
				id UUID PRIMARY KEY,
				template_id UUID NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				stage_order INTEGER NOT NULL,
				is_required BOOLEAN NOT NULL DEFAULT false,
				allow_skip BOOLEAN NOT NULL DEFAULT false,
				auto_advance BOOLEAN NOT NULL DEFAULT false,
				condition JSONB,
				client_visible BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_template_stages_template_id ON template_stages(template_id);
			CREATE INDEX idx_template_stages_order ON template_stages(template_id, stage_order);

			CREATE TABLE template_tasks (
				id UUID PRIMARY KEY,
				stage_id UUID NOT NULL REFERENCES template_stages(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				task_order INTEGER NOT NULL,
				assigned_to VARCHAR(255) NOT NULL DEFAULT '',
				estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
				due_offset_days INTEGER NOT NULL DEFAULT 0,
				depends_on_task_ids JSONB,
				client_visible BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_template_tasks_stage_id ON template_tasks(stage_id);
			CREATE INDEX idx_template_tasks_order ON template_tasks(stage_id, task_order);

			CREATE TABLE template_steps (
				id UUID PRIMARY KEY,
				task_id UUID NOT NULL REFERENCES template_tasks(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				step_order INTEGER NOT NULL,
				allow_skip BOOLEAN NOT NULL DEFAULT false,
				auto_advance BOOLEAN NOT NULL DEFAULT false,
				show_progress BOOLEAN NOT NULL DEFAULT false,
				allow_back_navigation BOOLEAN NOT NULL DEFAULT false,
				save_progress BOOLEAN NOT NULL DEFAULT false,
				validation_rules JSONB,
				condition JSONB,
				client_visible BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_template_steps_task_id ON template_steps(task_id);
			CREATE INDEX idx_template_steps_order ON template_steps(task_id, step_order);

			CREATE TABLE step_elements (
				id UUID PRIMARY KEY,
				step_id UUID NOT NULL REFERENCES template_steps(id) ON DELETE CASCADE,
				element_type VARCHAR(50) NOT NULL,
				element_key VARCHAR(255) NOT NULL,
				label VARCHAR(255) NOT NULL DEFAULT '',
				element_order INTEGER NOT NULL,
				required BOOLEAN NOT NULL DEFAULT false,
				client_visible BOOLEAN NOT NULL DEFAULT false,
				config JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_step_elements_step_id ON step_elements(step_id);
			CREATE INDEX idx_step_elements_order ON step_elements(step_id, element_order);

			CREATE TABLE instances (
				id UUID PRIMARY KEY,
				template_id UUID NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
				status VARCHAR(50) NOT NULL,
				completion_percentage INTEGER NOT NULL DEFAULT 0,
				current_stage_id UUID,
				current_task_id UUID,
				current_step_id UUID,
				project_id VARCHAR(255),
				client_id VARCHAR(255),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				instance_data JSONB,
				created_by VARCHAR(255) NOT NULL,
				updated_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_instances_template_id ON instances(template_id);
			CREATE INDEX idx_instances_status ON instances(status);
			CREATE INDEX idx_instances_created_at ON instances(created_at);
			CREATE INDEX idx_instances_completed_at ON instances(completed_at);

			CREATE TABLE instance_step_data (
				id UUID PRIMARY KEY,
				instance_id UUID NOT NULL REFERENCES instances(id) ON DELETE CASCADE,
				step_id UUID NOT NULL,
				element_key VARCHAR(255) NOT NULL,
				element_value JSONB,
				data_type VARCHAR(50) NOT NULL DEFAULT '',
				is_valid BOOLEAN NOT NULL DEFAULT true,
				submitted_by VARCHAR(255) NOT NULL,
				submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (instance_id, step_id, element_key)
			);

			CREATE INDEX idx_instance_step_data_instance_id ON instance_step_data(instance_id);
			CREATE INDEX idx_instance_step_data_step ON instance_step_data(instance_id, step_id);

			CREATE TABLE user_roles (
				user_id VARCHAR(255) NOT NULL,
				role VARCHAR(50) NOT NULL,
				granted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, role)
			);
		`,
	}
}
