package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the simulation platform
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	// Create extension for UUID generation
	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	// Create tables
	tables := []string{
		createUsersTable,
		createPatientsTable,
		createSessionsTable,
		createWardSessionsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes
	indexes := []string{
		createUsersIndexes,
		createPatientsIndexes,
		createSessionsIndexes,
		createWardSessionsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			org_id UUID NOT NULL,
			name VARCHAR(200) NOT NULL,
			email VARCHAR(254) UNIQUE NOT NULL,
			role VARCHAR(20) NOT NULL,
			is_deleted BOOLEAN DEFAULT FALSE,
			last_login_at TIMESTAMP WITH TIME ZONE,
			device_token TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			org_id UUID NOT NULL,
			name VARCHAR(200) NOT NULL,
			date_of_birth VARCHAR(10),
			gender VARCHAR(20),
			presentation TEXT,
			observations JSONB DEFAULT '{}'::jsonb,
			is_deleted BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createSessionsTable = `
		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			org_id UUID NOT NULL,
			patient_id UUID NOT NULL REFERENCES patients(id),
			created_by UUID NOT NULL REFERENCES users(id),
			name VARCHAR(200) NOT NULL,
			state VARCHAR(10) NOT NULL DEFAULT 'active',
			start_time TIMESTAMP WITH TIME ZONE NOT NULL,
			end_time TIMESTAMP WITH TIME ZONE,
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createWardSessionsTable = `
		CREATE TABLE IF NOT EXISTS ward_sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			org_id UUID NOT NULL,
			ward_id UUID NOT NULL,
			started_by UUID NOT NULL REFERENCES users(id),
			status VARCHAR(10) NOT NULL DEFAULT 'ACTIVE',
			assignments JSONB NOT NULL DEFAULT '{}'::jsonb,
			start_time TIMESTAMP WITH TIME ZONE NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createUsersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_users_org_id ON users(org_id);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
		CREATE INDEX IF NOT EXISTS idx_users_last_login_at ON users(last_login_at);`

	createPatientsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_patients_org_id ON patients(org_id);
		CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients(created_at);`

	createSessionsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_sessions_org_id ON sessions(org_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_patient_id ON sessions(patient_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);`

	createWardSessionsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_ward_sessions_org_id ON ward_sessions(org_id);
		CREATE INDEX IF NOT EXISTS idx_ward_sessions_ward_id ON ward_sessions(ward_id);
		CREATE INDEX IF NOT EXISTS idx_ward_sessions_status ON ward_sessions(status);`
)
