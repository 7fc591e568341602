package notification

import (
	"github.com/tabsplit/internal/domain/reconciliation"
)

func BillRoom(billID string) string         { return "bill_" + billID }
func BillSplitRoom(billID string) string    { return "bill_" + billID + "_split" }
func SplitRoom(splitID string) string       { return "split_" + splitID }
func TableRoom(tableCode string) string     { return "table_" + tableCode }
func BusinessRoom(businessID string) string { return "business_" + businessID }

// RoomsFor lists every room interested in changes of state
func RoomsFor(state *reconciliation.BillSplitState) []string {
	rooms := []string{
		BillRoom(state.BillID),
		BillSplitRoom(state.BillID),
		SplitRoom(state.SplitID.String()),
	}
	if state.TableCode != "" {
		rooms = append(rooms, TableRoom(state.TableCode))
	}
	if state.BusinessID != "" {
		rooms = append(rooms, BusinessRoom(state.BusinessID))
	}
	return rooms
}
