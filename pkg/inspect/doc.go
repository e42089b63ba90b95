// Package inspect looks for API keys embedded in web pages. Keys are
// JWT-shaped strings whose payload carries a project ref and a role.
package inspect
