// Package conversations persists chat histories for the HTTP API.
//
// Two Store implementations are provided. FileStore writes one JSON document
// per conversation, which keeps conversations readable and easy to back up.
// SQLiteStore uses modernc.org/sqlite and suits larger histories.
//
//	store, err := conversations.Open(cfg.Conversations)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	conv, err := store.Create(ctx, "", nil)
//	conv, err = store.Append(ctx, conv.ID, conversations.Message{
//	    Role:    conversations.RoleUser,
//	    Content: "Hello",
//	})
//
// Conversation ids are UUIDs; any other id is rejected with ErrInvalidID
// before it reaches the backend, so ids are never used to build paths that
// escape the store directory.
package conversations
