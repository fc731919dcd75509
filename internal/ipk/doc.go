// Package ipk writes installable package archives in the ipk format.
//
// An ipk is a gzip-compressed tar holding three members: debian-binary (the
// format version), control.tar.gz (the control metadata and the maintainer
// scripts) and data.tar.gz (the staged file tree). Every timestamp in the
// archive, including the gzip headers, is set to the epoch supplied by the
// caller, and ownership is reset to root, so identical inputs always yield
// identical bytes.
//
// Example usage:
//
//	f, err := os.Create("hello_1.0-1_rm1.ipk")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	scripts := map[string]string{ipk.ScriptPostinst: postinst}
//	if err := ipk.Write(f, epoch, "work/rm1/pkg/hello", control, scripts); err != nil {
//	    return err
//	}
package ipk
