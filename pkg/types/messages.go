package types

// Client -> Server
// join:match:
//   matchId: string
//
// leave:match:
//   matchId: string
//
// admin:broadcast (admin only):
//   payload: { message: string, type: string }
//
// match:updateScore (admin only):
//   matchId: string
//   payload: { runs: number, wickets: number, overs: number, ... }
//
// match:addWicket (admin only):
//   matchId: string
//   payload: { batsman: string, dismissal: string, ... }
//
// match:addBoundary (admin only):
//   matchId: string
//   payload: { runs: 4 | 6, batsman: string, ... }
//
// match:completeOver (admin only):
//   matchId: string
//   payload: { over: number, runs: number, ... }
//
// match:changeStatus (admin only):
//   matchId: string
//   payload: { status: "upcoming" | "live" | "innings-break" | "completed" }
//
// commentary:add (admin only):
//   matchId: string
//   payload: { text: string }

// Server -> Client
// match:scoreUpdate | match:wicket | match:boundary | match:over |
// match:statusChange | commentary:update:
//   matchId: string
//   payload: as supplied by the sending admin
//   timestamp: RFC3339Nano, assigned by the server at broadcast time
//
// admin:notification (to admins, excluding the sender):
//   payload: { message: string, type: string }
//   timestamp: RFC3339Nano
//
// admin:userOnline | admin:userOffline (to the other admins):
//   payload: { id: string, displayName: string }
//   timestamp: RFC3339Nano
//
// error:
//   error: string
