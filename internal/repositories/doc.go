// Package repositories implements SQLite persistence for the radiotx entities.
//
// Key Implementations:
//   - [SessionRepository] : OAuth credential bags keyed by session id, implementing [models.Repository]
//
// Session data is stored as a JSON object so the credential keys can grow without migrations.
// Rows are hard-deleted; there is nothing to keep once a session logs out.
package repositories
