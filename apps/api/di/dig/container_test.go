package dig_container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/juku/apps/api/echo"
	"github.com/trezcool/juku/core"
)

func TestNew(t *testing.T) {
	t.Setenv("DEV_STORE_DRIVER", core.StoreMemory)
	t.Setenv("DEV_LOCK_DRIVER", core.LockLocal)

	c := New()
	err := c.Invoke(func(server *echoapi.Server, store core.DocStore, closeBackends Closer) {
		defer closeBackends()

		assert.NotNil(t, store)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	require.NoError(t, err)
}
