package service

const (
	unknownBuilding = "unknown"
	unknownFloor    = 0
)

type locationKey struct {
	building string
	floor    int
}

type locationGroup struct {
	key   locationKey
	rooms []candidateRoom
}

func locationOf(c candidateRoom) locationKey {
	key := locationKey{building: unknownBuilding, floor: unknownFloor}
	if c.room.Building != nil && *c.room.Building != "" {
		key.building = *c.room.Building
	}
	if c.room.Floor != nil {
		key.floor = *c.room.Floor
	}
	return key
}

// groupByLocation partitions a ranked pool by building and floor.
// Groups appear in the order their first room appears in the pool; rooms keep pool order.
func groupByLocation(pool []candidateRoom) []locationGroup {
	index := make(map[locationKey]int)
	var groups []locationGroup
	for _, c := range pool {
		if c.remaining <= 0 {
			continue
		}
		key := locationOf(c)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, locationGroup{key: key})
		}
		groups[i].rooms = append(groups[i].rooms, c)
	}
	return groups
}
