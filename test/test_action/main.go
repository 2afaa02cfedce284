package main

import (
	"testing"

	"github.com/team-rocos/rosgo/libtest/libtest_action"
)

func main() {
	t := new(testing.T)
	libtest_action.RTTest(t)
}
