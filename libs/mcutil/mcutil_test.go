package mcutil

import (
	"testing"

	"github.com/mzansicare/backend/libs/test"
)

func TestPickServerStable(t *testing.T) {
	hs := NewHRWServer([]string{"10.0.0.1:11211", "10.0.0.2:11211", "10.0.0.3:11211"})

	a1, err := hs.PickServer("vcode:acct_000000000016I")
	test.OK(t, err)
	for i := 0; i < 10; i++ {
		a2, err := hs.PickServer("vcode:acct_000000000016I")
		test.OK(t, err)
		test.Equals(t, a1.String(), a2.String())
	}
}

func TestPickServerNoHosts(t *testing.T) {
	hs := NewHRWServer(nil)
	_, err := hs.PickServer("key")
	test.Assert(t, err != nil, "expected error with no hosts")
}

func TestSetHosts(t *testing.T) {
	hs := NewHRWServer([]string{"10.0.0.1:11211"})
	servers, err := hs.Servers()
	test.OK(t, err)
	test.Equals(t, 1, len(servers))

	hs.SetHosts([]string{"10.0.0.1:11211", "10.0.0.2:11211"})
	servers, err = hs.Servers()
	test.OK(t, err)
	test.Equals(t, 2, len(servers))
}
