package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="false"/>
    </crm_config>
    <nodes>
      <node id="1" uname="node1" type="member"/>
    </nodes>
    <resources>
      <primitive id="vip" class="ocf" type="IPaddr2"/>
    </resources>
  </configuration>
</cib>`

const minimalStatus = `<status>
  <node_state id="1" uname="node1" in_ccm="true" crmd="online"/>
</status>`

func TestScheduleProducesStartAction(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	result, err := Schedule([]byte(minimalConfig), []byte(minimalStatus), now)
	require.NoError(t, err)
	assert.Contains(t, string(result.TransitionGraph), `operation="start"`)
	assert.True(t, result.NextRecheck.After(now))
}

func TestScheduleIsDeterministic(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	r1, err := Schedule([]byte(minimalConfig), []byte(minimalStatus), now)
	require.NoError(t, err)
	r2, err := Schedule([]byte(minimalConfig), []byte(minimalStatus), now)
	require.NoError(t, err)
	assert.Equal(t, r1.TransitionGraph, r2.TransitionGraph)
	assert.Equal(t, r1.NextRecheck, r2.NextRecheck)
}

const cyclicOrderConfig = `<cib>
  <configuration>
    <nodes>
      <node id="1" uname="node1" type="member"/>
    </nodes>
    <resources>
      <primitive id="a" class="ocf" type="Dummy"/>
      <primitive id="b" class="ocf" type="Dummy"/>
    </resources>
    <constraints>
      <rsc_order id="ord1" first="a" first-action="start" then="b" then-action="start" kind="Mandatory"/>
      <rsc_order id="ord2" first="b" first-action="start" then="a" then-action="start" kind="Mandatory"/>
    </constraints>
  </configuration>
</cib>`

func TestScheduleAbortsOnOrderingCycle(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	_, err := Schedule([]byte(cyclicOrderConfig), []byte(minimalStatus), now)
	assert.Error(t, err)
}
