package handler

import "net/http"

// APIPrefix is the mount point of every versioned route.
const APIPrefix = "/api/v1"

// Register mounts the note and topic routes on mux. /health stays outside
// the prefix and is registered by the caller, since it bypasses auth.
func Register(mux *http.ServeMux, notes *NoteHandler, topics *TopicHandler) {
	mux.HandleFunc("GET "+APIPrefix+"/notes/search", notes.SearchNotes)
	mux.HandleFunc("POST "+APIPrefix+"/notes", notes.CreateNote)
	mux.HandleFunc("PUT "+APIPrefix+"/notes/{id}", notes.UpdateNote)
	mux.HandleFunc("DELETE "+APIPrefix+"/notes/{id}", notes.DeleteNote)
	mux.HandleFunc("PATCH "+APIPrefix+"/notes/{id}/favorite", notes.SetFavorite)

	mux.HandleFunc("GET "+APIPrefix+"/topics", topics.ListTopics)
	mux.HandleFunc("GET "+APIPrefix+"/topics/tree", topics.GetTree)
	mux.HandleFunc("POST "+APIPrefix+"/topics/ensure-path", topics.EnsurePath)
	mux.HandleFunc("DELETE "+APIPrefix+"/topics/{id}", topics.DeleteTopic)
}
