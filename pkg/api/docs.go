// Package api provides the admin REST API of DDOIndexor
// @title DDOIndexor Admin API
// @version 1.0
// @description Admin API for inspecting crawl progress and submitting reindex tasks
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/DDOIndexor
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
