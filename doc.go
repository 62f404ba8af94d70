// Package backend provides the tinyforum API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/forum: threads, posts, stars, reports and their permissions
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and moderator checks
// - internal/websocket: Per-thread rooms for live posts
// - internal/database: Database connection and migrations
// - internal/email: Report notifications over SES
// - internal/middleware: HTTP middleware (rate limiting, metrics, tracing)
// - internal/search: Elasticsearch indexing and search
// - internal/cache: Redis cache for starred threads
// - internal/seed: Fake data for development

// See the individual package documentation for detailed API reference.
package backend
