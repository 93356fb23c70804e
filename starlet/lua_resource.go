// lua_resource.go - Device whose behaviour is a Lua script

package starlet

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	lua "github.com/yuin/gopher-lua"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
)

/*
LuaResource runs a device model written in Lua. The script defines global
functions; any it leaves out answer EINVAL:

    open(name, mode)             -> result [, state]
    read(state, length)          -> result, data
    write(state, data)           -> result
    seek(state, offset, whence)  -> result
    ioctl(state, num, input, outlen) -> result [, output]
    ioctlv(state, num, {inputs}, {inouts}) -> result [, {inouts}]
    close(state)

Buffers travel as Lua strings. A negative result is returned to the
application CPU as an error code. The script also gets a "starlet" table
with log(msg) and an "ipc" table with the error code constants.
*/
type LuaResource struct {
	mu sync.Mutex // an LState is single-threaded
	vm *lua.LState
}

// NewLuaResource loads src as the device model.
func NewLuaResource(name, src string) (*LuaResource, error) {
	r := &LuaResource{vm: lua.NewState()}
	r.install(name)
	if err := r.vm.DoString(src); err != nil {
		r.vm.Close()
		return nil, fmt.Errorf("starlet: loading %s: %w", name, err)
	}
	return r, nil
}

// LoadLuaResource loads the device model from a script file.
func LoadLuaResource(path string) (*LuaResource, error) {
	r := &LuaResource{vm: lua.NewState()}
	r.install(path)
	if err := r.vm.DoFile(path); err != nil {
		r.vm.Close()
		return nil, fmt.Errorf("starlet: loading %s: %w", path, err)
	}
	return r, nil
}

func (r *LuaResource) install(name string) {
	mod := r.vm.NewTable()
	r.vm.SetFuncs(mod, map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			glog.Infof("starlet: %s: %s", name, L.CheckString(1))
			return 0
		},
	})
	r.vm.SetGlobal("starlet", mod)

	codes := r.vm.NewTable()
	for _, c := range []int32{ipc.IPC_EACCES, ipc.IPC_EEXIST, ipc.IPC_EINVAL, ipc.IPC_ENOENT, ipc.IPC_EQUEUEFULL, ipc.IPC_ENOMEM} {
		r.vm.SetField(codes, ipc.ErrorName(c), lua.LNumber(c))
	}
	r.vm.SetGlobal("ipc", codes)
}

// Close releases the interpreter.
func (r *LuaResource) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm.Close()
}

func (r *LuaResource) defines(fn string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vm.GetGlobal(fn).Type() == lua.LTFunction
}

// call runs the global fn with args and returns its nret results. A
// missing function is EINVAL.
func (r *LuaResource) call(fn string, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.vm.GetGlobal(fn)
	if f.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: script has no %s", EINVAL, fn)
	}
	if err := r.vm.CallByParam(lua.P{Fn: f, NRet: nret, Protect: true}, args...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", EINVAL, fn, err)
	}
	ret := make([]lua.LValue, nret)
	for i := range ret {
		ret[i] = r.vm.Get(-nret + i)
	}
	r.vm.Pop(nret)
	return ret, nil
}

// result turns a script result into a Go result.
func result(v lua.LValue) (int32, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, nil
	}
	if n < 0 {
		return 0, Errno(int32(n))
	}
	return int32(n), nil
}

func (r *LuaResource) Open(name string, mode ipc.Mode) (Handle, error) {
	ret, err := r.call("open", 2, lua.LString(name), lua.LNumber(mode))
	if err != nil {
		return nil, err
	}
	if _, err := result(ret[0]); err != nil {
		return nil, err
	}
	return &luaHandle{r: r, state: ret[1]}, nil
}

type luaHandle struct {
	r     *LuaResource
	state lua.LValue
}

func (h *luaHandle) Read(p []byte) (int32, error) {
	ret, err := h.r.call("read", 2, h.state, lua.LNumber(len(p)))
	if err != nil {
		return 0, err
	}
	n, err := result(ret[0])
	if err != nil {
		return 0, err
	}
	if s, ok := ret[1].(lua.LString); ok {
		copy(p, s)
	}
	return min(n, int32(len(p))), nil
}

func (h *luaHandle) Write(p []byte) (int32, error) {
	ret, err := h.r.call("write", 1, h.state, lua.LString(p))
	if err != nil {
		return 0, err
	}
	return result(ret[0])
}

func (h *luaHandle) Seek(offset int32, whence ipc.Whence) (int32, error) {
	ret, err := h.r.call("seek", 1, h.state, lua.LNumber(offset), lua.LNumber(whence))
	if err != nil {
		return 0, err
	}
	return result(ret[0])
}

func (h *luaHandle) Ioctl(num int32, in, out []byte) (int32, error) {
	ret, err := h.r.call("ioctl", 2, h.state, lua.LNumber(num), lua.LString(in), lua.LNumber(len(out)))
	if err != nil {
		return 0, err
	}
	if s, ok := ret[1].(lua.LString); ok {
		copy(out, s)
	}
	return result(ret[0])
}

func (h *luaHandle) Ioctlv(num int32, in, io [][]byte) (int32, error) {
	h.r.mu.Lock()
	inT, ioT := h.r.vm.NewTable(), h.r.vm.NewTable()
	for _, p := range in {
		inT.Append(lua.LString(p))
	}
	for _, p := range io {
		ioT.Append(lua.LString(p))
	}
	h.r.mu.Unlock()

	ret, err := h.r.call("ioctlv", 2, h.state, lua.LNumber(num), inT, ioT)
	if err != nil {
		return 0, err
	}
	if t, ok := ret[1].(*lua.LTable); ok {
		for i, p := range io {
			if s, ok := t.RawGetInt(i + 1).(lua.LString); ok {
				copy(p, s)
			}
		}
	}
	return result(ret[0])
}

func (h *luaHandle) Close() error {
	if !h.r.defines("close") {
		return nil
	}
	_, err := h.r.call("close", 0, h.state)
	return err
}
