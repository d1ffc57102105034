// Package postgres stores the local user mirror, roles and client profiles
// in PostgreSQL through sqlx over the pgx stdlib driver. New user ids are
// snowflake ids; the schema is applied by [Migrate].
package postgres
