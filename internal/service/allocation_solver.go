package service

import "github.com/noah-isme/exam-room-api/pkg/config"

// maxExactCapacity bounds the seat total the exact solver will search; larger pools use greedy fill.
const maxExactCapacity = 20000

type roomAssignment struct {
	candidate candidateRoom
	assigned  int
}

func (a roomAssignment) waste() int {
	return a.candidate.remaining - a.assigned
}

// combinationSolver picks rooms whose assignments sum to exactly participants.
type combinationSolver interface {
	Solve(participants int, pool []candidateRoom) ([]roomAssignment, bool)
}

func newCombinationSolver(strategy string) combinationSolver {
	if strategy == config.StrategyExact {
		return exactSolver{maxCapacity: maxExactCapacity}
	}
	return greedySolver{}
}

// greedySolver tries each location group in order, then the whole pool.
type greedySolver struct{}

func (greedySolver) Solve(participants int, pool []candidateRoom) ([]roomAssignment, bool) {
	if participants <= 0 {
		return nil, false
	}
	for _, group := range groupByLocation(pool) {
		if assignments, ok := greedyFill(participants, group.rooms); ok {
			return assignments, true
		}
	}
	return greedyFill(participants, pool)
}

// greedyFill walks rooms in order assigning as many participants as each can hold.
func greedyFill(participants int, rooms []candidateRoom) ([]roomAssignment, bool) {
	left := participants
	var assignments []roomAssignment
	for _, c := range rooms {
		if left == 0 {
			break
		}
		if c.remaining <= 0 {
			continue
		}
		take := min(left, c.remaining)
		assignments = append(assignments, roomAssignment{candidate: c, assigned: take})
		left -= take
	}
	if left > 0 {
		return nil, false
	}
	return assignments, true
}

// exactSolver selects, per candidate set, the room subset with the smallest seat total that still
// covers participants. Ties prefer fewer rooms, then earlier ranked rooms.
type exactSolver struct {
	maxCapacity int
}

func (s exactSolver) Solve(participants int, pool []candidateRoom) ([]roomAssignment, bool) {
	if participants <= 0 {
		return nil, false
	}
	if totalRemaining(pool) > s.maxCapacity {
		return greedySolver{}.Solve(participants, pool)
	}
	for _, group := range groupByLocation(pool) {
		if assignments, ok := minimalCover(participants, group.rooms); ok {
			return assignments, true
		}
	}
	return minimalCover(participants, pool)
}

type coverState struct {
	ok    bool
	rooms []int
}

func (c coverState) betterThan(other coverState) bool {
	if !other.ok {
		return true
	}
	if len(c.rooms) != len(other.rooms) {
		return len(c.rooms) < len(other.rooms)
	}
	for i := range c.rooms {
		if c.rooms[i] != other.rooms[i] {
			return c.rooms[i] < other.rooms[i]
		}
	}
	return false
}

// minimalCover runs a 0/1 subset-sum over remaining seats and fills the winning subset tightest first.
func minimalCover(participants int, rooms []candidateRoom) ([]roomAssignment, bool) {
	total := totalRemaining(rooms)
	if total < participants {
		return nil, false
	}

	best := make([]coverState, total+1)
	best[0] = coverState{ok: true}
	for i, c := range rooms {
		if c.remaining <= 0 {
			continue
		}
		for sum := total; sum >= c.remaining; sum-- {
			prev := best[sum-c.remaining]
			if !prev.ok {
				continue
			}
			next := coverState{ok: true, rooms: append(append(make([]int, 0, len(prev.rooms)+1), prev.rooms...), i)}
			if next.betterThan(best[sum]) {
				best[sum] = next
			}
		}
	}

	for sum := participants; sum <= total; sum++ {
		if !best[sum].ok {
			continue
		}
		chosen := make([]candidateRoom, 0, len(best[sum].rooms))
		for _, i := range best[sum].rooms {
			chosen = append(chosen, rooms[i])
		}
		return greedyFill(participants, chosen)
	}
	return nil, false
}

func totalRemaining(rooms []candidateRoom) int {
	total := 0
	for _, c := range rooms {
		if c.remaining > 0 {
			total += c.remaining
		}
	}
	return total
}
