package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conductPage = `
<table><tbody><tr><td>irrelevant leading table</td></tr></tbody></table>
<table><tbody>
<tr><td>學年</td><td>嘉獎</td><td>次數</td><td>警告</td><td>次數</td></tr>
<tr><td>112</td><td>嘉獎</td><td>3</td><td>警告</td><td>1</td></tr>
</tbody></table>
<table><tbody>
<tr class="dataRow">
<td>嘉獎</td><td>2024/03/01</td><td>2024/03/05</td><td>服務熱心</td><td>已執行</td><td>&nbsp;</td><td>112</td>
</tr>
<tr class="dataRow">
<td>警告</td><td>2024/04/02</td><td>2024/04/06</td><td>遲到</td><td>已執行</td><td>2024/05/01</td><td>112</td>
</tr>
</tbody></table>`

func TestExtractConduct(t *testing.T) {
	doc := parseHTML(t, conductPage)
	record := ExtractConduct(doc)

	assert.Equal(t, []ConductStatus{
		{Type: "嘉獎", Times: 3},
		{Type: "警告", Times: 1},
	}, record.Status)

	require.Len(t, record.Detail, 2)

	first := record.Detail[0]
	assert.Equal(t, "嘉獎", first.Type)
	assert.Equal(t, "服務熱心", first.Reason)
	assert.Nil(t, first.Sold)
	assert.Equal(t, uint16(112), first.Year)

	second := record.Detail[1]
	assert.Equal(t, "警告", second.Type)
	require.NotNil(t, second.Sold)
	assert.Equal(t, "2024/05/01", *second.Sold)
}

func TestExtractConductEmptyPage(t *testing.T) {
	doc := parseHTML(t, `<body><p>nothing</p></body>`)
	record := ExtractConduct(doc)

	assert.Empty(t, record.Status)
	assert.Empty(t, record.Detail)
}
