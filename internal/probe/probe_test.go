package probe

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
)

func TestPingerNoHosts(t *testing.T) {
	p := NewPinger(nil, time.Second)
	assert.Nil(t, p.Run(context.Background()))
}

func TestPingerDefaultTimeout(t *testing.T) {
	p := NewPinger([]string{"host1"}, 0)
	assert.Equal(t, 5*time.Second, p.timeout)
}

func TestHostLabel(t *testing.T) {
	assert.Equal(t, "localhost", hostLabel(""))
	assert.Equal(t, "localhost", hostLabel("local"))
	assert.Equal(t, "docker1", hostLabel("tcp://docker1:2375"))
	assert.Equal(t, "nas", hostLabel("ssh://nas"))
}

func TestServiceName(t *testing.T) {
	withLabel := types.Container{
		ID:     "abcdef123456789",
		Names:  []string{"/stack_web_1"},
		Labels: map[string]string{labelComposeService: "web"},
	}
	assert.Equal(t, "web", serviceName(withLabel))

	noLabel := types.Container{
		ID:    "abcdef123456789",
		Names: []string{"/standalone"},
	}
	assert.Equal(t, "standalone", serviceName(noLabel))

	bare := types.Container{ID: "abcdef123456789"}
	assert.Equal(t, "abcdef123456", serviceName(bare))
}
