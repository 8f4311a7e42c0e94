package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOptionOverridesInsertsMissingCrmConfig(t *testing.T) {
	cib := []byte(`<cib><configuration><nodes/></configuration></cib>`)

	out, err := mergeOptionOverrides(cib, map[string]string{"stonith-enabled": "false"})
	require.NoError(t, err)

	assert.Contains(t, string(out), `name="stonith-enabled"`)
	assert.Contains(t, string(out), `value="false"`)
}

func TestMergeOptionOverridesPreservesExistingAndOverrides(t *testing.T) {
	cib := []byte(`<cib><configuration><crm_config><nvpair name="no-quorum-policy" value="stop"/><nvpair name="batch-limit" value="10"/></crm_config></configuration></cib>`)

	out, err := mergeOptionOverrides(cib, map[string]string{"batch-limit": "5"})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `name="no-quorum-policy" value="stop"`)
	assert.Contains(t, s, `name="batch-limit" value="5"`)
	assert.NotContains(t, s, `value="10"`)
}

func TestMergeOptionOverridesNoOpWhenEmpty(t *testing.T) {
	cib := []byte(`<cib><configuration/></cib>`)

	out, err := mergeOptionOverrides(cib, nil)
	require.NoError(t, err)
	assert.Equal(t, cib, out)
}
