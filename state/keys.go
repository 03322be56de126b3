package state

import "fmt"

const (
	salePrefix    = "sale/category"
	windowPrefix  = "sale/window"
	tradePrefix   = "sale/trade"
	accountPrefix = "account"
	paramPrefix   = "params"
	rolePrefix    = "roles"
)

func saleKey(categoryID uint64) []byte {
	return []byte(fmt.Sprintf("%s/%d", salePrefix, categoryID))
}

func windowKey(buyer [20]byte, categoryID uint64) []byte {
	return []byte(fmt.Sprintf("%s/%d/%x", windowPrefix, categoryID, buyer))
}

func tradeKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf("%s/%x", tradePrefix, id))
}

func accountKey(addr []byte) []byte {
	return []byte(fmt.Sprintf("%s/%x", accountPrefix, addr))
}

func paramKey(name string) []byte {
	return []byte(fmt.Sprintf("%s/%s", paramPrefix, name))
}

func roleKey(role string, addr []byte) []byte {
	return []byte(fmt.Sprintf("%s/%s/%x", rolePrefix, role, addr))
}
