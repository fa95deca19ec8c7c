package types

// Client -> Server
// available_rooms: (no args)
//
// create_room: (no args)
//
// join_room:
//   roomId: number
//   username: string
//
// submitAnswer: positional
//   roomId: number
//   option: string

// Server -> Client
// rooms: Room[]
//   id: number
//   isFull: boolean
//
// waiting_room:
//   roomId: number
//   username: string
//
// game_start:
//   players: Player[] // id (number or string) | username | score
//
// newQuestion:
//   question: string
//   options: string[] // non-empty
//   timer: number     // seconds, >= 0
//   roomId: number
//
// gameOver:
//   players: Player[] // final scores, shown in server order
