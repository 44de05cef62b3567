// Package types is the websocket wire protocol. Every frame is a JSON object
// with a "type" field.
//
// Client -> Server
// createSession: {}
//
// joinSession:
//   sessionId: string
//
// submitMove:
//   sessionId: string
//   move: string // UCI ("e2e4") or SAN ("e4")
//
// resign / leaveSession / requestRematch:
//   sessionId: string
//
// respondRematch:
//   sessionId: string
//   accept: boolean
//
// Server -> Client
// connected:       identity
// sessionCreated:  role, session
// sessionJoined:   role, session // sent to the joiner only
// sessionStarted:  session
// sessionPaused:   identity, role, session
// sessionResumed:  identity, role, session
// moveApplied:     move { by, san, position, turn, moveHistory, captures, clock, terminalStatus? }
// sessionEnded:    reason, winner // winner empty on draws
// seatVacated:     identity, role
// spectatorsChanged: spectators
// rematchOffered:  identity // the offerer
// rematchDeclined: identity // the decliner
// rematchSessionReady: newSessionId, session?, role?
// sessionClosed:   {}
// error:           error { code, message }
//
// Every server event carries sessionId (when it has one) and seq, which
// grows with every event a session emits.
package types
