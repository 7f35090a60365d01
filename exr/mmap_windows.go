//go:build windows

package exr

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mappedFile is a read-only memory mapping of a whole file.
type mappedFile struct {
	data   []byte
	file   *os.File
	handle windows.Handle
}

func mapFile(f *os.File) (*mappedFile, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &mappedFile{file: f}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("file of %d bytes is too large to map", size)
	}

	handle, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY,
		uint32(size>>32), uint32(size), nil)
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	return &mappedFile{data: data, file: f, handle: handle}, nil
}

// Close unmaps the file and closes it.
func (m *mappedFile) Close() error {
	var err error
	if m.data != nil {
		err = windows.UnmapViewOfFile(uintptr(unsafe.Pointer(unsafe.SliceData(m.data))))
		m.data = nil
	}
	if m.handle != 0 {
		if cerr := windows.CloseHandle(m.handle); err == nil {
			err = cerr
		}
		m.handle = 0
	}
	if m.file != nil {
		if cerr := m.file.Close(); err == nil {
			err = cerr
		}
		m.file = nil
	}
	return err
}
