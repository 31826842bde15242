package storage

import "fmt"

// ValueID identifies a single stored value: the container it lives in,
// the page within that container's heap file, and the slot within that
// page.
type ValueID struct {
	ContainerID uint16
	PageID      PageID
	SlotID      SlotID
}

func (v ValueID) String() string {
	return fmt.Sprintf("c%d:p%d:s%d", v.ContainerID, v.PageID, v.SlotID)
}
