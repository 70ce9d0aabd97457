// Package server provides HTTP routing, middleware and the JSON API of the radiotx web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// "METHOD /path" patterns on an [http.ServeMux], so wildcards such as {task_id} are read with
// [http.Request.PathValue] and other methods get a 405.
//
// [Middleware] wraps handlers in reverse order (last added executes first).
// [NewHandler] installs [Recover], [Logging] and [Sessions] around every route.
//
// # Sessions
//
// [Sessions] maps the radiotx_session cookie to a row of the session store. Handlers never hand
// the request's session to background work; they pass a clone inside [tasks.Credentials] so the
// run stays valid after the response is written.
//
// # API
//
// Mutating routes validate their JSON body, register a task, queue the run on the
// [tasks.Dispatcher] and answer with the task id straight away:
//
//	POST /create_playlist_from_file  {file_name}
//	POST /merge_playlists            {source_playlist_id, target_playlist_id}
//	GET  /playlist_progress/{task_id}
//
// Every error body is {"status": "error", "message": ...}; see [StatusFor] for the status codes.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves the one-shot callback of the CLI login. It validates state, exchanges the
// code into a session and reports the outcome on a channel. The web flow uses [API.SpotifyLogin]
// and [API.Callback] instead, storing the token in the cookie session.
package server
