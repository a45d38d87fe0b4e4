// Package pinecone implements provider.Provider for the Pinecone Assistant chat API.
//
// A non-streaming exchange reads a single JSON body and extracts the answer from a
// fixed priority list of fields. A streaming exchange reads server-sent events and
// classifies every payload by its structure: OpenAI style choice deltas and flat
// content fragments are appended to the answer, a full message replaces it.
// Payloads that cannot be classified are logged and skipped.
package pinecone
