package engine

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioNow = time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

const twoNodeStatus = `<status>
  <node_state id="n1" uname="n1" in_ccm="true" crmd="online"/>
  <node_state id="n2" uname="n2" in_ccm="true" crmd="online"/>
</status>`

// S1: single start, no constraints, deterministic tie-break onto n1.
func TestScenarioSingleStart(t *testing.T) {
	config := `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="false"/>
    </crm_config>
    <nodes>
      <node id="n1" uname="n1" type="member"/>
      <node id="n2" uname="n2" type="member"/>
    </nodes>
    <resources>
      <primitive id="A" class="ocf" type="Dummy"/>
    </resources>
  </configuration>
</cib>`

	result, err := Schedule([]byte(config), []byte(twoNodeStatus), scenarioNow)
	require.NoError(t, err)

	graph := string(result.TransitionGraph)
	assert.Equal(t, 1, strings.Count(graph, `operation="start"`))
	assert.Contains(t, graph, `resource="A" operation="start" on_node="n1"`)
}

// S2: colocation(B with A, score=-INFINITY) splits the two resources onto
// distinct nodes with no ordering edge between their starts.
func TestScenarioAntiColocation(t *testing.T) {
	config := `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="false"/>
    </crm_config>
    <nodes>
      <node id="n1" uname="n1" type="member"/>
      <node id="n2" uname="n2" type="member"/>
    </nodes>
    <resources>
      <primitive id="A" class="ocf" type="Dummy"/>
      <primitive id="B" class="ocf" type="Dummy"/>
    </resources>
    <constraints>
      <rsc_colocation id="col1" rsc="B" with-rsc="A" score="-INFINITY"/>
    </constraints>
  </configuration>
</cib>`

	result, err := Schedule([]byte(config), []byte(twoNodeStatus), scenarioNow)
	require.NoError(t, err)

	graph := string(result.TransitionGraph)
	assert.Contains(t, graph, `resource="A" operation="start" on_node="n1"`)
	assert.Contains(t, graph, `resource="B" operation="start" on_node="n2"`)
}

// S3: mandatory symmetric order creates start A -> start B (start B's
// trigger list names start A's action id).
func TestScenarioMandatoryOrderStart(t *testing.T) {
	config := `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="false"/>
    </crm_config>
    <nodes>
      <node id="n1" uname="n1" type="member"/>
    </nodes>
    <resources>
      <primitive id="A" class="ocf" type="Dummy"/>
      <primitive id="B" class="ocf" type="Dummy"/>
    </resources>
    <constraints>
      <rsc_order id="ord1" first="A" first-action="start" then="B" then-action="start" kind="Mandatory" symmetrical="true"/>
    </constraints>
  </configuration>
</cib>`
	status := `<status>
  <node_state id="n1" uname="n1" in_ccm="true" crmd="online"/>
</status>`

	result, err := Schedule([]byte(config), []byte(status), scenarioNow)
	require.NoError(t, err)

	graph := string(result.TransitionGraph)

	idRe := regexp.MustCompile(`<action id="(\d+)" resource="A" operation="start"`)
	m := idRe.FindStringSubmatch(graph)
	require.Len(t, m, 2, "expected a start A action")
	startAID := m[1]

	bIdx := strings.Index(graph, `resource="B" operation="start"`)
	require.GreaterOrEqual(t, bIdx, 0, "expected a start B action")
	bStart := strings.LastIndex(graph[:bIdx], "<action ")
	bEnd := strings.Index(graph[bIdx:], "</action>") + bIdx
	bSection := graph[bStart:bEnd]

	assert.Contains(t, bSection, `<trigger id="`+startAID+`"`,
		"start B must trigger off start A's action id")
}

// S4: promotable clone, promoted-max=1, highest-scoring instance promotes.
// Per-node preference scores (n1=100, n2=50, n3=50) are expressed as plain
// rsc_location entries on the clone's instance primitive — clone allocation
// scores and sorts its template resource directly, so that's the id these
// constraints need to name.
func TestScenarioPromotableClone(t *testing.T) {
	config := `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="false"/>
    </crm_config>
    <nodes>
      <node id="n1" uname="n1" type="member"/>
      <node id="n2" uname="n2" type="member"/>
      <node id="n3" uname="n3" type="member"/>
    </nodes>
    <resources>
      <clone id="C">
        <meta_attributes>
          <nvpair name="promotable" value="true"/>
          <nvpair name="clone-max" value="3"/>
          <nvpair name="promoted-max" value="1"/>
        </meta_attributes>
        <primitive id="c-rsc" class="ocf" type="Dummy"/>
      </clone>
    </resources>
    <constraints>
      <rsc_location id="loc-c-n1" rsc="c-rsc" node="n1" score="100"/>
      <rsc_location id="loc-c-n2" rsc="c-rsc" node="n2" score="50"/>
      <rsc_location id="loc-c-n3" rsc="c-rsc" node="n3" score="50"/>
    </constraints>
  </configuration>
</cib>`
	status := `<status>
  <node_state id="n1" uname="n1" in_ccm="true" crmd="online"/>
  <node_state id="n2" uname="n2" in_ccm="true" crmd="online"/>
  <node_state id="n3" uname="n3" in_ccm="true" crmd="online"/>
</status>`

	result, err := Schedule([]byte(config), []byte(status), scenarioNow)
	require.NoError(t, err)

	graph := string(result.TransitionGraph)
	assert.Equal(t, 1, strings.Count(graph, `operation="promote"`))
	assert.Contains(t, graph, `operation="promote" on_node="n1"`)
	assert.NotContains(t, graph, `operation="promote" on_node="n2"`)
	assert.NotContains(t, graph, `operation="promote" on_node="n3"`)
}

// S5: unclean node hosting a running resource, stonith-enabled, produces a
// fence action, a stop of the resource on that node, and a start elsewhere.
func TestScenarioFencingUncleanNode(t *testing.T) {
	config := `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="true"/>
    </crm_config>
    <nodes>
      <node id="n1" uname="n1" type="member"/>
      <node id="n2" uname="n2" type="member"/>
    </nodes>
    <resources>
      <primitive id="A" class="ocf" type="Dummy"/>
    </resources>
  </configuration>
</cib>`
	status := `<status>
  <node_state id="n1" uname="n1" in_ccm="true" crmd="online" unclean="true">
    <lrm>
      <lrm_resources>
        <lrm_resource id="A">
          <lrm_rsc_op id="A_last_0" operation="start" rc-code="0" on_node="n1"/>
        </lrm_resource>
      </lrm_resources>
    </lrm>
  </node_state>
  <node_state id="n2" uname="n2" in_ccm="true" crmd="online"/>
</status>`

	result, err := Schedule([]byte(config), []byte(status), scenarioNow)
	require.NoError(t, err)

	graph := string(result.TransitionGraph)
	assert.Contains(t, graph, `resource="fence:n1" operation="fence" on_node="n1"`)
	assert.Contains(t, graph, `resource="A" operation="stop" on_node="n1"`)
	assert.Contains(t, graph, `resource="A" operation="start" on_node="n2"`)
}

// S6: a resource bound to an ungranted loss-policy=fence ticket gets its
// host fenced and the resource stopped.
func TestScenarioTicketLossFence(t *testing.T) {
	config := `<cib>
  <configuration>
    <crm_config>
      <nvpair name="stonith-enabled" value="true"/>
    </crm_config>
    <nodes>
      <node id="n1" uname="n1" type="member"/>
      <node id="n2" uname="n2" type="member"/>
    </nodes>
    <resources>
      <primitive id="A" class="ocf" type="Dummy"/>
    </resources>
    <tickets>
      <ticket_state id="T" granted="false"/>
    </tickets>
    <constraints>
      <rsc_ticket id="rt1" rsc="A" ticket="T" loss-policy="fence"/>
    </constraints>
  </configuration>
</cib>`
	status := `<status>
  <node_state id="n1" uname="n1" in_ccm="true" crmd="online">
    <lrm>
      <lrm_resources>
        <lrm_resource id="A">
          <lrm_rsc_op id="A_last_0" operation="start" rc-code="0" on_node="n1"/>
        </lrm_resource>
      </lrm_resources>
    </lrm>
  </node_state>
  <node_state id="n2" uname="n2" in_ccm="true" crmd="online"/>
</status>`

	result, err := Schedule([]byte(config), []byte(status), scenarioNow)
	require.NoError(t, err)

	graph := string(result.TransitionGraph)
	assert.Contains(t, graph, `resource="fence:n1"`)
	assert.Contains(t, graph, `resource="A" operation="stop" on_node="n1"`)
}
